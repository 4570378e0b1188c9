package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/internal/service/chat"
	"github.com/iamasit07/realtime-chat/pkg/httputil"
	"github.com/iamasit07/realtime-chat/pkg/useragent"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 16 * 1024
)

// Admitter validates the token a client presents when opening a connection.
type Admitter interface {
	AdmitConnection(token string) (*domain.Identity, error)
}

// Handler manages WebSocket dependencies
type Handler struct {
	Registry *Registry
	Router   *chat.Router
	Auth     Admitter
	Upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty allowedOrigins accepts
// any origin.
func NewHandler(registry *Registry, router *chat.Router, auth Admitter, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &Handler{
		Registry: registry,
		Router:   router,
		Auth:     auth,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket upgrades the request and admits it with the token from the
// query string (or Authorization header). A rejected client still gets the
// upgrade so it can read the policy-violation close frame.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token, _ := httputil.GetTokenFromRequest(c.Request)

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	identity, err := h.Auth.AdmitConnection(token)
	if err != nil {
		log.Printf("[WS] Rejected connection from %s (%s): %v",
			useragent.ClientIP(c.Request), useragent.Describe(c.Request), err)
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	log.Printf("[WS] Connection opened for %s from %s", identity.Username, useragent.Describe(c.Request))
	h.Registry.Connect(identity.Username, conn)
	h.serve(c.Request.Context(), identity, conn)
}

// serve runs the receive loop for one admitted connection. Frames are handled
// strictly in arrival order.
func (h *Handler) serve(ctx context.Context, identity *domain.Identity, conn *websocket.Conn) {
	done := make(chan struct{})

	defer func() {
		close(done)
		conn.Close()
		if h.Registry.DisconnectIfCurrent(identity.Username, conn) {
			log.Printf("[WS] Connection closed for %s", identity.Username)
			h.Router.Leave(identity.Username)
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Keep-alive pinger
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeGracePeriod)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] %s disconnected unexpectedly: %v", identity.Username, err)
			}
			return
		}

		frame, err := chat.DecodeFrame(data)
		if err != nil {
			log.Printf("[WS] Protocol violation from %s: %v", identity.Username, err)
			closeWith(conn, websocket.CloseUnsupportedData, err.Error())
			return
		}

		if err := h.Router.Route(ctx, identity, frame); err != nil {
			log.Printf("[CHAT] Failed to handle message from %s: %v", identity.Username, err)
			if errors.Is(err, domain.ErrPersistenceFailure) {
				closeWith(conn, websocket.CloseInternalServerErr, domain.ErrPersistenceFailure.Error())
				return
			}
		}
	}
}
