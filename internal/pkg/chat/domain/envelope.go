package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags the envelope union.
type EventType string

const (
	EventMessage  EventType = "MESSAGE"
	EventReadUpTo EventType = "READ_UP_TO"
	EventDelete   EventType = "DELETE"
)

// Bus topics. Every topic is partitioned by room id, so events for one room
// are processed in publish order relative to each other.
const (
	TopicMessage  = "chat.message"
	TopicRead     = "chat.read"
	TopicDelete   = "chat.delete"
	TopicAssist   = "chat.assist"
	TopicOutbound = "chat.outbound"
)

// MessageEvent carries a not-yet-persisted message intent.
type MessageEvent struct {
	ClientMessageID string          `json:"clientMessageId"`
	AuthorID        string          `json:"authorId,omitempty"` // empty for bot-authored
	Content         string          `json:"content"`
	Attachments     []Attachment    `json:"attachments,omitempty"`
	Recommendation  json.RawMessage `json:"recommendation,omitempty"`
	Assist          bool            `json:"assist,omitempty"` // request an AI reply
	SentAt          time.Time       `json:"sentAt"`
}

// ReadUpToEvent advances a member's read watermark.
type ReadUpToEvent struct {
	MemberID   string    `json:"memberId"`
	LastReadAt time.Time `json:"lastReadAt"`
}

// DeleteEvent removes a message, provided the requester authored it.
type DeleteEvent struct {
	MemberID string `json:"memberId"`
	DeleteID string `json:"deleteId"`
}

// Envelope is the tagged union moved across the bus: exactly one variant is
// set, matching Type.
type Envelope struct {
	Type     EventType      `json:"type"`
	RoomID   string         `json:"roomId"`
	Message  *MessageEvent  `json:"message,omitempty"`
	ReadUpTo *ReadUpToEvent `json:"readUpTo,omitempty"`
	Delete   *DeleteEvent   `json:"delete,omitempty"`
}

// Validate checks structural integrity: the variant matching the tag must be
// present and carry its required fields.
func (e Envelope) Validate() error {
	if e.RoomID == "" {
		return fmt.Errorf("envelope: room id is required")
	}
	switch e.Type {
	case EventMessage:
		if e.Message == nil {
			return fmt.Errorf("envelope: missing MESSAGE variant")
		}
		if e.Message.ClientMessageID == "" {
			return ErrMissingKey
		}
		if e.Message.Content == "" && len(e.Message.Attachments) == 0 {
			return ErrEmptyContent
		}
	case EventReadUpTo:
		if e.ReadUpTo == nil {
			return fmt.Errorf("envelope: missing READ_UP_TO variant")
		}
		if e.ReadUpTo.LastReadAt.IsZero() {
			return ErrMissingTime
		}
	case EventDelete:
		if e.Delete == nil {
			return fmt.Errorf("envelope: missing DELETE variant")
		}
		if e.Delete.DeleteID == "" {
			return ErrMissingTarget
		}
	default:
		return fmt.Errorf("envelope: unknown event type %q", e.Type)
	}
	return nil
}

// Encode marshals the envelope for bus transport.
func (e Envelope) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEnvelope unmarshals and validates a bus payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("envelope: decode: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
