package websocket

import (
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/realtime-chat/internal/domain"
)

const (
	closeGracePeriod = time.Second
	displacedReason  = "signed in from another connection"
)

var errHandleFailed = errors.New("connection previously failed")

// Conn is the part of *websocket.Conn the registry writes through.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// handle is one registered connection. mu serialises data writes because
// WriteJSON is not safe for concurrent use.
type handle struct {
	conn   Conn
	mu     sync.Mutex
	failed atomic.Bool
}

func (h *handle) write(msg interface{}, timeout time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failed.Load() {
		return errHandleFailed
	}

	h.conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := h.conn.WriteJSON(msg); err != nil {
		// Closing unblocks the owner's read loop, which runs the disconnect path.
		h.failed.Store(true)
		h.conn.Close()
		return err
	}
	return nil
}

func closeWith(conn Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	conn.Close()
}

// Registry maps usernames to their single live connection.
type Registry struct {
	handles      map[string]*handle
	mu           sync.RWMutex // Protects the map itself
	writeTimeout time.Duration
}

func NewRegistry(writeTimeout time.Duration) *Registry {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Registry{
		handles:      make(map[string]*handle),
		writeTimeout: writeTimeout,
	}
}

// Connect registers conn for username. Any connection it replaces is closed.
func (r *Registry) Connect(username string, conn Conn) {
	r.mu.Lock()
	old, exists := r.handles[username]
	r.handles[username] = &handle{conn: conn}
	r.mu.Unlock()

	if exists && old.conn != conn {
		log.Printf("[WS] Replacing existing connection for %s", username)
		closeWith(old.conn, websocket.ClosePolicyViolation, displacedReason)
	}
}

// Disconnect forgets username's connection. No-op when absent.
func (r *Registry) Disconnect(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, username)
}

// DisconnectIfCurrent removes username only while conn is still its registered
// connection, so a displaced connection cannot evict its replacement.
func (r *Registry) DisconnectIfCurrent(username string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.handles[username]; exists && current.conn == conn {
		delete(r.handles, username)
		return true
	}
	return false
}

func (r *Registry) lookup(username string) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[username]
	return h, ok
}

// Send writes msg to username's connection. It returns domain.ErrDeliveryMiss
// when username is not connected.
func (r *Registry) Send(username string, msg domain.OutboundMessage) error {
	h, ok := r.lookup(username)
	if !ok {
		return domain.ErrDeliveryMiss
	}
	if err := h.write(msg, r.writeTimeout); err != nil {
		log.Printf("[WS] Failed to send to %s: %v", username, err)
		return err
	}
	return nil
}

func (r *Registry) sendQuietly(username string, msg domain.OutboundMessage) {
	if err := r.Send(username, msg); errors.Is(err, domain.ErrDeliveryMiss) {
		log.Printf("[WS] %s is not connected, dropping frame", username)
	}
}

// Unicast delivers msg to its receiver and echoes it to its sender. A frame a
// user addresses to themselves arrives once.
func (r *Registry) Unicast(msg domain.OutboundMessage) {
	r.sendQuietly(msg.Receiver, msg)
	if msg.Sender != msg.Receiver {
		r.sendQuietly(msg.Sender, msg)
	}
}

// Echo delivers msg to its sender only.
func (r *Registry) Echo(msg domain.OutboundMessage) {
	r.sendQuietly(msg.Sender, msg)
}

// Broadcast sends msg to every connection except the sender's and waits for
// all writes to finish. Each write is bounded by the write timeout.
func (r *Registry) Broadcast(msg domain.OutboundMessage) {
	r.mu.RLock()
	targets := make(map[string]*handle, len(r.handles))
	for username, h := range r.handles {
		if username != msg.Sender {
			targets[username] = h
		}
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for username, h := range targets {
		wg.Add(1)
		go func(username string, h *handle) {
			defer wg.Done()
			if err := h.write(msg, r.writeTimeout); err != nil && !errors.Is(err, errHandleFailed) {
				log.Printf("[WS] Broadcast to %s failed: %v", username, err)
			}
		}(username, h)
	}
	wg.Wait()
}

// ListActive returns the usernames with a healthy connection, sorted.
func (r *Registry) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handles))
	for username, h := range r.handles {
		if !h.failed.Load() {
			names = append(names, username)
		}
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every connection with "going away". Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*handle)
	r.mu.Unlock()

	for _, h := range handles {
		closeWith(h.conn, websocket.CloseGoingAway, "server shutting down")
	}
	log.Printf("[WS] Closed %d connections", len(handles))
}
