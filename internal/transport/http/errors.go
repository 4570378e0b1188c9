package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/pkg/auth"
)

// respondError maps service errors onto status codes with a {"detail": ...} body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, domain.ErrAuthFailed),
		errors.Is(err, domain.ErrUnknownIdentity):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, domain.ErrInactiveIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Inactive user"})
	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
