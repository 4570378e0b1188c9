package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/pkg/auth"
	"github.com/iamasit07/realtime-chat/pkg/httputil"
)

const identityKey = "identity"

// TokenAuthenticator resolves the identity behind an access token.
type TokenAuthenticator interface {
	CurrentUser(ctx context.Context, token string) (*domain.Identity, error)
}

// Authenticate validates the access token from the Authorization header or
// the token query parameter and stores the identity on the context.
func Authenticate(authenticator TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := httputil.GetTokenFromRequest(c.Request)
		if err != nil {
			unauthorized(c, domain.ErrAuthFailed.Error())
			return
		}

		identity, err := authenticator.CurrentUser(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenMalformed),
				errors.Is(err, auth.ErrWrongTokenType),
				errors.Is(err, auth.ErrTokenExpired),
				errors.Is(err, domain.ErrUnknownIdentity):
				unauthorized(c, err.Error())
			default:
				log.Printf("[AUTH] Failed to resolve identity: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			}
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireActive rejects identities that have been deactivated. It must run
// after Authenticate.
func RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			unauthorized(c, domain.ErrAuthFailed.Error())
			return
		}
		if !identity.IsActive {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Inactive user"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by Authenticate.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*domain.Identity)
	return identity, ok && identity != nil
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
