package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/internal/service/session"
	"github.com/iamasit07/realtime-chat/internal/transport/http/middleware"
	"github.com/iamasit07/realtime-chat/pkg/auth"
	"github.com/iamasit07/realtime-chat/pkg/httputil"
	"github.com/iamasit07/realtime-chat/pkg/useragent"
)

type AuthHandler struct {
	Auth          *session.AuthService
	SecureCookies bool
}

func NewAuthHandler(authService *session.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		Auth:          authService,
		SecureCookies: secureCookies,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username             string `json:"username"`
		Password             string `json:"password"`
		ConfirmationPassword string `json:"confirmation_password"`
		Email                string `json:"email"`
		FullName             string `json:"fullname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	identity, err := h.Auth.Register(c.Request.Context(), session.RegisterRequest{
		Username:             req.Username,
		Password:             req.Password,
		ConfirmationPassword: req.ConfirmationPassword,
		Email:                req.Email,
		FullName:             req.FullName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

// Login accepts JSON or form-encoded credentials. The refresh token is also
// set as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	pair, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAuthFailed) {
			log.Printf("[AUTH] Failed login for %q from %s (%s)",
				req.Username, useragent.ClientIP(c.Request), useragent.Describe(c.Request))
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}
		respondError(c, err)
		return
	}

	httputil.SetRefreshCookie(c.Writer, pair.RefreshToken, h.SecureCookies)
	c.JSON(http.StatusOK, pair)
}

// Refresh takes the access or refresh token as a bearer token. A refresh_token
// cookie, when present, must match the stored one.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := httputil.GetBearerToken(c.Request)
	if err != nil {
		respondError(c, auth.ErrTokenMalformed)
		return
	}
	cookie, _ := httputil.GetCookie(c.Request, httputil.RefreshCookieName)

	pair, err := h.Auth.Refresh(c.Request.Context(), token, cookie)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := httputil.GetBearerToken(c.Request)
	if err != nil {
		respondError(c, auth.ErrTokenMalformed)
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		if errors.Is(err, domain.ErrAuthFailed) || errors.Is(err, domain.ErrUnknownIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Logout failed"})
			return
		}
		respondError(c, err)
		return
	}

	httputil.ClearRefreshCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out"})
}

// Me returns the caller's stored identity. Routed behind Authenticate and RequireActive.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, domain.ErrAuthFailed)
		return
	}
	c.JSON(http.StatusOK, identity)
}
