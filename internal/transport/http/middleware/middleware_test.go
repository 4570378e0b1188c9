package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/pkg/auth"
)

type stubAuthenticator map[string]*domain.Identity

func (s stubAuthenticator) CurrentUser(ctx context.Context, token string) (*domain.Identity, error) {
	switch token {
	case "expired":
		return nil, auth.ErrTokenExpired
	case "broken-db":
		return nil, errors.New("connection reset")
	}
	if identity, ok := s[token]; ok {
		return identity, nil
	}
	return nil, auth.ErrTokenMalformed
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	users := stubAuthenticator{
		"alice-token": {ID: 1, Username: "alice", IsActive: true},
		"eve-token":   {ID: 2, Username: "eve", IsActive: false},
	}
	engine := gin.New()
	engine.GET("/me", Authenticate(users), RequireActive(), func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.String(http.StatusOK, identity.Username)
	})
	return engine
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{"bearer", "Bearer alice-token", "", http.StatusOK, "alice"},
		{"query", "", "alice-token", http.StatusOK, "alice"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"expired", "Bearer expired", "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"inactive", "Bearer eve-token", "", http.StatusBadRequest, ""},
		{"store error", "Bearer broken-db", "", http.StatusInternalServerError, ""},
	}

	engine := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/me"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
			if tt.status == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("401 responses should carry WWW-Authenticate: Bearer")
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORSMiddleware([]string{"https://chat.example.com"}))
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "https://chat.example.com" {
		t.Errorf("allowed origin: status %d, header %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign origin: status %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("preflight: status %d, want 200", w.Code)
	}
}
