// Package chat routes inbound chat frames to their addressees and serves
// message history.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

// Deliverer pushes outbound frames to live connections. Misses are silent.
type Deliverer interface {
	Unicast(msg domain.OutboundMessage)
	Broadcast(msg domain.OutboundMessage)
	Echo(msg domain.OutboundMessage)
}

type UserDirectory interface {
	Resolve(ctx context.Context, username string) (*domain.Identity, error)
}

type MessageStore interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
	RecentMessages(ctx context.Context, userID int64, limit int) ([]domain.Message, error)
}

type Router struct {
	delivery  Deliverer
	directory UserDirectory
	store     MessageStore
}

func NewRouter(delivery Deliverer, directory UserDirectory, store MessageStore) *Router {
	return &Router{
		delivery:  delivery,
		directory: directory,
		store:     store,
	}
}

// DecodeFrame parses one client frame. The receiver may be a string, null or
// absent; anything but a non-empty name means everyone.
func DecodeFrame(data []byte) (domain.InboundFrame, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return domain.InboundFrame{}, fmt.Errorf("%w: expected a JSON object", domain.ErrProtocolViolation)
	}

	var frame domain.InboundFrame

	textRaw, ok := raw["text"]
	if !ok {
		return domain.InboundFrame{}, fmt.Errorf("%w: missing text", domain.ErrProtocolViolation)
	}
	if err := json.Unmarshal(textRaw, &frame.Text); err != nil || bytes.Equal(bytes.TrimSpace(textRaw), []byte("null")) {
		return domain.InboundFrame{}, fmt.Errorf("%w: text must be a string", domain.ErrProtocolViolation)
	}
	if strings.ContainsRune(frame.Text, 0) {
		return domain.InboundFrame{}, fmt.Errorf("%w: text contains a NUL character", domain.ErrProtocolViolation)
	}
	if utf8.RuneCountInString(frame.Text) > domain.MaxMessageLength {
		return domain.InboundFrame{}, fmt.Errorf("%w: text longer than %d characters", domain.ErrProtocolViolation, domain.MaxMessageLength)
	}

	if receiverRaw, ok := raw["receiver"]; ok {
		var receiver *string
		if err := json.Unmarshal(receiverRaw, &receiver); err != nil {
			return domain.InboundFrame{}, fmt.Errorf("%w: receiver must be a string or null", domain.ErrProtocolViolation)
		}
		if receiver != nil {
			frame.Receiver = strings.ToLower(strings.TrimSpace(*receiver))
		}
	}
	if frame.Receiver == "" {
		frame.Receiver = domain.BroadcastReceiver
	}
	return frame, nil
}

// Route delivers one frame from sender and then persists it. Delivery is never
// undone when persistence fails.
func (r *Router) Route(ctx context.Context, sender *domain.Identity, frame domain.InboundFrame) error {
	record := &domain.Message{
		SenderID: sender.ID,
		Sender:   sender.Username,
		Text:     frame.Text,
	}

	if frame.IsBroadcast() {
		out := domain.OutboundMessage{Receiver: domain.BroadcastReceiver, Text: frame.Text, Sender: sender.Username}
		r.delivery.Broadcast(out)
		r.delivery.Echo(out)
		record.IsBroadcast = true
	} else {
		receiver, err := r.directory.Resolve(ctx, frame.Receiver)
		if err != nil {
			// Nothing is delivered when the addressee cannot be looked up.
			return fmt.Errorf("%w: resolve receiver %s: %v", domain.ErrPersistenceFailure, frame.Receiver, err)
		}
		if receiver == nil {
			log.Printf("[CHAT] receiver %s not found", frame.Receiver)
		} else {
			id := receiver.ID
			record.ReceiverID = &id
			record.Receiver = receiver.Username
		}
		r.delivery.Unicast(domain.OutboundMessage{Receiver: frame.Receiver, Text: frame.Text, Sender: sender.Username})
	}

	if err := r.store.SaveMessage(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// Leave tells everyone still connected that username has gone. Not persisted.
func (r *Router) Leave(username string) {
	r.delivery.Broadcast(domain.OutboundMessage{
		Receiver: domain.BroadcastReceiver,
		Text:     domain.LeftChatText,
		Sender:   username,
	})
}
