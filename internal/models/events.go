package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Event is the payload type flowing through the room broadcaster. Handlers
// type-switch on it; adding a variant should break every switch loudly, so
// keep the set closed.
type Event interface {
	event()
}

// NewMessage announces a freshly created message to the room.
type NewMessage struct {
	MessageID string
}

// StatusChanged announces that a message's aggregate status advanced.
// Status is resolved at publish time; receivers render it as-is.
type StatusChanged struct {
	MessageID string
	Status    Status
}

// OccupancyChanged announces that the room's online set changed. Count is the
// total online count; sessions re-query the tracker excluding themselves
// before rendering, since the displayed count is viewer-relative.
type OccupancyChanged struct {
	Count int
}

func (NewMessage) event()       {}
func (StatusChanged) event()    {}
func (OccupancyChanged) event() {}

const (
	envelopeNewMessage       = "new_message"
	envelopeStatusChanged    = "status_changed"
	envelopeOccupancyChanged = "occupancy_changed"
)

// Envelope is the wire form of an Event on the cross-instance relay channel.
type Envelope struct {
	Origin    string `json:"origin"`
	Room      string `json:"room"`
	Type      string `json:"type"`
	MessageID string `json:"message_id,omitempty"`
	Status    Status `json:"status,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// EncodeEvent marshals ev into a relay envelope tagged with the publishing
// instance's origin ID.
func EncodeEvent(origin, room string, ev Event) ([]byte, error) {
	env := Envelope{Origin: origin, Room: room}
	switch e := ev.(type) {
	case NewMessage:
		env.Type = envelopeNewMessage
		env.MessageID = e.MessageID
	case StatusChanged:
		env.Type = envelopeStatusChanged
		env.MessageID = e.MessageID
		env.Status = e.Status
	case OccupancyChanged:
		env.Type = envelopeOccupancyChanged
		env.Count = e.Count
	default:
		return nil, fmt.Errorf("encode event: unknown event type %T", ev)
	}
	return json.Marshal(env)
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(payload []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("decode event: %w", err)
	}
	switch env.Type {
	case envelopeNewMessage:
		return env, NewMessage{MessageID: env.MessageID}, nil
	case envelopeStatusChanged:
		return env, StatusChanged{MessageID: env.MessageID, Status: env.Status}, nil
	case envelopeOccupancyChanged:
		return env, OccupancyChanged{Count: env.Count}, nil
	default:
		return Envelope{}, nil, fmt.Errorf("decode event: unknown type %q", env.Type)
	}
}

// ClientEvent is an inbound frame from a connected client. Exactly one of the
// fields is expected to be set.
type ClientEvent struct {
	Body          *string `json:"body,omitempty"`
	ReadMessageID *string `json:"read_message_id,omitempty"`
}

// Outbound frames pushed to a client connection.

type ChatMessageFrame struct {
	Type      string `json:"type"`
	HTML      string `json:"html"`
	MessageID string `json:"message_id"`
}

type ChatMessageStatusFrame struct {
	Type      string `json:"type"`
	HTML      string `json:"html"`
	MessageID string `json:"message_id"`
	Status    Status `json:"status"`
}

type OnlineCountFrame struct {
	Type string `json:"type"`
	HTML string `json:"html"`
}

const (
	FrameChatMessage       = "chat_message"
	FrameChatMessageStatus = "chat_message_status"
	FrameOnlineCount       = "online_count"
)
