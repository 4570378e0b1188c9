package cleanup

import (
	"context"
	"log"
	"time"
)

// TokenReaper clears refresh tokens that deactivated identities still hold.
type TokenReaper interface {
	ClearInactiveRefreshTokens(ctx context.Context) (int64, error)
}

type Worker struct {
	Users    TokenReaper
	Interval time.Duration
}

func NewWorker(users TokenReaper, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{Users: users, Interval: interval}
}

// Start runs one cleanup immediately and then every Interval until ctx is done.
// The returned channel is closed once the worker has stopped.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.runCleanup(ctx)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[CLEANUP] Background worker stopped")
				return
			case <-ticker.C:
				w.runCleanup(ctx)
			}
		}
	}()
	log.Println("[CLEANUP] Background worker started")
	return done
}

// runCleanup executes the actual cleanup logic
func (w *Worker) runCleanup(ctx context.Context) {
	cleared, err := w.Users.ClearInactiveRefreshTokens(ctx)
	if err != nil {
		log.Printf("[CLEANUP] Error clearing refresh tokens of inactive users: %v", err)
		return
	}
	if cleared > 0 {
		log.Printf("[CLEANUP] Signed out %d inactive users", cleared)
	}
}
