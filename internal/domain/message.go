package domain

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the format used for message timestamps in API responses.
const TimestampLayout = "2006-01-02 15:04:05"

// Message is a persisted chat message.
//
// Exactly one addressee form holds: IsBroadcast with no ReceiverID, a resolved
// ReceiverID, or neither (the name given by the sender did not resolve).
type Message struct {
	ID          int64
	SenderID    int64
	Sender      string
	ReceiverID  *int64
	Receiver    string
	IsBroadcast bool
	Text        string
	CreatedAt   time.Time
}

// ReceiverName returns the addressee as shown to clients: "all", a username,
// or nil when the addressee never resolved.
func (m *Message) ReceiverName() *string {
	if m.IsBroadcast {
		all := BroadcastReceiver
		return &all
	}
	if m.ReceiverID == nil {
		return nil
	}
	name := m.Receiver
	return &name
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       int64   `json:"id"`
		Sender   string  `json:"sender"`
		Receiver *string `json:"receiver"`
		Text     string  `json:"text"`
		Created  string  `json:"created"`
	}{
		ID:       m.ID,
		Sender:   m.Sender,
		Receiver: m.ReceiverName(),
		Text:     m.Text,
		Created:  m.CreatedAt.Format(TimestampLayout),
	})
}

// InboundFrame is one client-to-server chat frame. A nil Receiver has already
// been normalised to BroadcastReceiver by the time routing happens.
type InboundFrame struct {
	Receiver string
	Text     string
}

// IsBroadcast reports whether the frame addresses every connected identity.
func (f InboundFrame) IsBroadcast() bool {
	return f.Receiver == BroadcastReceiver
}

// OutboundMessage is the server-to-client chat frame.
type OutboundMessage struct {
	Receiver string `json:"receiver"`
	Text     string `json:"text"`
	Sender   string `json:"sender"`
}
