package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/transport/http/middleware"
)

// RouterDeps are the handlers and settings SetupRoutes wires together.
type RouterDeps struct {
	APIPrefix      string
	AllowedOrigins []string
	Authenticator  middleware.TokenAuthenticator
	Auth           *AuthHandler
	OAuth          *OAuthHandler
	Chat           *ChatHandler
	WebSocket      gin.HandlerFunc
}

// SetupRoutes builds the gin engine for the whole API.
func SetupRoutes(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(d.AllowedOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMW := middleware.Authenticate(d.Authenticator)
	api := router.Group(d.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/refresh", d.Auth.Refresh)
		authGroup.POST("/logout", d.Auth.Logout)
		authGroup.GET("/google/login", d.OAuth.GoogleLogin)
		authGroup.GET("/google/callback", d.OAuth.GoogleCallback)
	}

	api.GET("/users/me", authMW, middleware.RequireActive(), d.Auth.Me)

	chatGroup := api.Group("/chat")
	{
		chatGroup.GET("/all_users", d.Chat.AllUsers)
		chatGroup.GET("/messages", authMW, d.Chat.Messages)
		// Auth for the socket is handled inside the WebSocket handler itself.
		chatGroup.GET("/ws", d.WebSocket)
	}

	return router
}
