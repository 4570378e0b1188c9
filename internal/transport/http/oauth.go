package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/config"
	"github.com/iamasit07/realtime-chat/internal/service/session"
	"github.com/iamasit07/realtime-chat/pkg/auth"
	"github.com/iamasit07/realtime-chat/pkg/httputil"
	"golang.org/x/oauth2"
)

type OAuthHandler struct {
	Auth          *session.AuthService
	Config        *oauth2.Config
	SecureCookies bool
}

// NewOAuthHandler takes a nil oauthConfig when Google login is not configured.
func NewOAuthHandler(authService *session.AuthService, oauthConfig *oauth2.Config, secureCookies bool) *OAuthHandler {
	return &OAuthHandler{
		Auth:          authService,
		Config:        oauthConfig,
		SecureCookies: secureCookies,
	}
}

// GoogleLogin redirects the user to Google
func (h *OAuthHandler) GoogleLogin(c *gin.Context) {
	if h.Config == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Google login is not configured"})
		return
	}

	state, err := auth.GenerateToken()
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.SetStateCookie(c.Writer, state, h.SecureCookies)
	c.Redirect(http.StatusTemporaryRedirect, h.Config.AuthCodeURL(state))
}

// GoogleCallback handles the response from Google
func (h *OAuthHandler) GoogleCallback(c *gin.Context) {
	if h.Config == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Google login is not configured"})
		return
	}

	state, err := httputil.GetCookie(c.Request, httputil.OAuthStateCookieName)
	if err != nil || state != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid OAuth state"})
		return
	}

	ctx := c.Request.Context()
	token, err := h.Config.Exchange(ctx, c.Query("code"))
	if err != nil {
		log.Printf("[OAUTH] Failed to exchange token: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Google authentication failed"})
		return
	}

	userInfo, err := config.FetchGoogleUser(ctx, h.Config, token)
	if err != nil {
		log.Printf("[OAUTH] Failed to get user info: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Could not read Google profile"})
		return
	}

	profile := session.ExternalProfile{GoogleID: userInfo.ID, Name: userInfo.Name}
	// Only a verified address may be used to link an existing account.
	if userInfo.VerifiedEmail {
		profile.Email = userInfo.Email
	}

	pair, err := h.Auth.LoginExternal(ctx, profile)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.SetRefreshCookie(c.Writer, pair.RefreshToken, h.SecureCookies)
	c.JSON(http.StatusOK, pair)
}
