package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/realtime-chat/internal/domain"
)

// fakeConn records JSON writes and control frames.
type fakeConn struct {
	mu       sync.Mutex
	frames   []domain.OutboundMessage
	controls [][]byte
	closed   bool
	writeErr error
	delay    time.Duration
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	data, _ := json.Marshal(v)
	var msg domain.OutboundMessage
	_ = json.Unmarshal(data, &msg)
	f.frames = append(f.frames, msg)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.CloseMessage {
		f.controls = append(f.controls, data)
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistry_Unicast(t *testing.T) {
	r := NewRegistry(time.Second)
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Connect("alice", alice)
	r.Connect("bob", bob)
	r.Connect("carol", carol)

	r.Unicast(domain.OutboundMessage{Receiver: "bob", Text: "hi", Sender: "alice"})

	if bob.count() != 1 {
		t.Errorf("bob got %d frames, want 1", bob.count())
	}
	if alice.count() != 1 {
		t.Errorf("alice got %d echoes, want 1", alice.count())
	}
	if carol.count() != 0 {
		t.Errorf("carol got %d frames, want 0", carol.count())
	}
}

func TestRegistry_UnicastSelfOnce(t *testing.T) {
	r := NewRegistry(time.Second)
	alice := &fakeConn{}
	r.Connect("alice", alice)

	r.Unicast(domain.OutboundMessage{Receiver: "alice", Text: "note", Sender: "alice"})
	if alice.count() != 1 {
		t.Errorf("alice got %d frames, want 1", alice.count())
	}
}

func TestRegistry_SendMiss(t *testing.T) {
	r := NewRegistry(time.Second)
	err := r.Send("ghost", domain.OutboundMessage{Receiver: "ghost", Text: "boo", Sender: "alice"})
	if !errors.Is(err, domain.ErrDeliveryMiss) {
		t.Errorf("got %v, want ErrDeliveryMiss", err)
	}

	alice := &fakeConn{}
	r.Connect("alice", alice)
	r.Unicast(domain.OutboundMessage{Receiver: "ghost", Text: "boo", Sender: "alice"})
	if alice.count() != 1 {
		t.Errorf("alice got %d echoes, want 1", alice.count())
	}
}

func TestRegistry_BroadcastSkipsSender(t *testing.T) {
	r := NewRegistry(time.Second)
	conns := map[string]*fakeConn{"alice": {}, "bob": {}, "carol": {}}
	for name, c := range conns {
		r.Connect(name, c)
	}

	r.Broadcast(domain.OutboundMessage{Receiver: "all", Text: "hi", Sender: "alice"})

	if conns["alice"].count() != 0 {
		t.Errorf("sender got %d frames, want 0", conns["alice"].count())
	}
	for _, name := range []string{"bob", "carol"} {
		if conns[name].count() != 1 {
			t.Errorf("%s got %d frames, want 1", name, conns[name].count())
		}
	}
}

func TestRegistry_BroadcastIsolatesFailures(t *testing.T) {
	r := NewRegistry(time.Second)
	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	slow := &fakeConn{delay: 50 * time.Millisecond}
	r.Connect("healthy", healthy)
	r.Connect("broken", broken)
	r.Connect("slow", slow)

	r.Broadcast(domain.OutboundMessage{Receiver: "all", Text: "one", Sender: "alice"})

	if healthy.count() != 1 || slow.count() != 1 {
		t.Errorf("healthy=%d slow=%d, want 1 each", healthy.count(), slow.count())
	}
	if !broken.isClosed() {
		t.Error("failed connection should be closed")
	}

	for _, name := range r.ListActive() {
		if name == "broken" {
			t.Error("failed connection should not be listed as active")
		}
	}

	broken.mu.Lock()
	broken.writeErr = nil
	broken.mu.Unlock()
	r.Broadcast(domain.OutboundMessage{Receiver: "all", Text: "two", Sender: "alice"})
	if broken.count() != 0 {
		t.Error("failed connection should be skipped by later sends")
	}
	if healthy.count() != 2 {
		t.Errorf("healthy got %d frames, want 2", healthy.count())
	}
}

func TestRegistry_ConnectReplacesAndClosesOld(t *testing.T) {
	r := NewRegistry(time.Second)
	first, second := &fakeConn{}, &fakeConn{}
	r.Connect("bob", first)
	r.Connect("bob", second)

	if !first.isClosed() {
		t.Error("displaced connection should be closed")
	}
	if len(first.controls) != 1 {
		t.Fatalf("displaced connection got %d close frames, want 1", len(first.controls))
	}

	r.Unicast(domain.OutboundMessage{Receiver: "bob", Text: "hi", Sender: "alice"})
	if first.count() != 0 || second.count() != 1 {
		t.Errorf("first=%d second=%d, want 0 and 1", first.count(), second.count())
	}

	if r.DisconnectIfCurrent("bob", first) {
		t.Error("displaced connection must not evict its replacement")
	}
	if got := r.ListActive(); len(got) != 1 || got[0] != "bob" {
		t.Errorf("ListActive = %v, want [bob]", got)
	}
	if !r.DisconnectIfCurrent("bob", second) {
		t.Error("current connection should be removed")
	}
	if got := r.ListActive(); len(got) != 0 {
		t.Errorf("ListActive = %v, want empty", got)
	}
}

func TestRegistry_DisconnectAndList(t *testing.T) {
	r := NewRegistry(0)
	r.Connect("carol", &fakeConn{})
	r.Connect("alice", &fakeConn{})
	r.Connect("bob", &fakeConn{})

	got := r.ListActive()
	want := []string{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("ListActive = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListActive[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	r.Disconnect("bob")
	r.Disconnect("nobody")
	if got := r.ListActive(); len(got) != 2 {
		t.Errorf("ListActive after disconnect = %v", got)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry(time.Second)
	a, b := &fakeConn{}, &fakeConn{}
	r.Connect("a", a)
	r.Connect("b", b)

	r.CloseAll()

	if !a.isClosed() || !b.isClosed() {
		t.Error("all connections should be closed")
	}
	if len(r.ListActive()) != 0 {
		t.Error("registry should be empty after CloseAll")
	}
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry(time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i%5))
			c := &fakeConn{}
			r.Connect(name, c)
			r.Broadcast(domain.OutboundMessage{Receiver: "all", Text: "x", Sender: name})
			r.ListActive()
			r.DisconnectIfCurrent(name, c)
		}(i)
	}
	wg.Wait()
}
