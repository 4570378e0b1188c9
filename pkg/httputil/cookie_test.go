package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
		ok     bool
	}{
		{"bearer", "/x", "Bearer abc", "abc", true},
		{"lowercase bearer", "/x", "bearer abc", "abc", true},
		{"query", "/x?token=q1", "", "q1", true},
		{"header wins", "/x?token=q1", "Bearer h1", "h1", true},
		{"basic ignored", "/x", "Basic zzz", "", false},
		{"none", "/x", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := GetTokenFromRequest(r)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRefreshCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetRefreshCookie(w, "rt", false)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	got, err := GetCookie(r, RefreshCookieName)
	if err != nil || got != "rt" {
		t.Fatalf("GetCookie = %q, %v", got, err)
	}

	w = httptest.NewRecorder()
	ClearRefreshCookie(w)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("ClearRefreshCookie did not expire the cookie: %+v", cookies)
	}
}
