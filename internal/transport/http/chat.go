package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/iamasit07/realtime-chat/internal/service/chat"
	"github.com/iamasit07/realtime-chat/internal/transport/http/middleware"
)

// ActiveLister reports who is connected right now.
type ActiveLister interface {
	ListActive() []string
}

type ChatHandler struct {
	Active  ActiveLister
	History *chat.History
}

func NewChatHandler(active ActiveLister, history *chat.History) *ChatHandler {
	return &ChatHandler{Active: active, History: history}
}

func (h *ChatHandler) AllUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users_list": h.Active.ListActive()})
}

// Messages returns the caller's recent history. An optional ?limit overrides
// the configured default.
func (h *ChatHandler) Messages(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, domain.ErrAuthFailed)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be an integer"})
			return
		}
		limit = n
	}

	messages, err := h.History.Recent(c.Request.Context(), identity, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages_list": messages})
}
