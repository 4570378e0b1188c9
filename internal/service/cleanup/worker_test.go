package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingReaper struct {
	calls atomic.Int32
	err   error
}

func (r *countingReaper) ClearInactiveRefreshTokens(ctx context.Context) (int64, error) {
	r.calls.Add(1)
	return 1, r.err
}

func TestWorker_RunsUntilCancelled(t *testing.T) {
	reaper := &countingReaper{}
	w := NewWorker(reaper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)

	deadline := time.After(2 * time.Second)
	for reaper.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("worker ran %d times, want at least 3", reaper.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorker_SurvivesErrors(t *testing.T) {
	reaper := &countingReaper{err: errors.New("db down")}
	w := NewWorker(reaper, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	<-w.Start(ctx)

	if reaper.calls.Load() < 2 {
		t.Errorf("worker stopped after an error: %d calls", reaper.calls.Load())
	}
}

func TestNewWorker_DefaultInterval(t *testing.T) {
	if w := NewWorker(&countingReaper{}, 0); w.Interval != time.Hour {
		t.Errorf("Interval = %v, want 1h", w.Interval)
	}
}
