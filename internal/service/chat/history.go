package chat

import (
	"context"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

const maxHistoryLimit = 100

type History struct {
	store        MessageStore
	defaultLimit int
}

func NewHistory(store MessageStore, defaultLimit int) *History {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &History{store: store, defaultLimit: defaultLimit}
}

// Recent returns the newest messages identity may see: its own, broadcasts,
// and those addressed to it.
func (h *History) Recent(ctx context.Context, identity *domain.Identity, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return h.store.RecentMessages(ctx, identity.ID, limit)
}
