package chat

import (
	"encoding/json"
	"strings"
	"time"
)

// Logical id namespaces. User and bot messages derive their ids from different
// prefixes so the two can never collide in the store.
const (
	userIDPrefix = "usr:"
	botIDPrefix  = "bot:"
)

// LogicalUserID derives the durable message id from a client idempotency key.
func LogicalUserID(clientMessageID string) string {
	return userIDPrefix + clientMessageID
}

// LogicalBotID derives the durable message id for a bot reply from the assist
// request id. Reusing the request id makes a retried generation collapse onto
// the same record.
func LogicalBotID(requestID string) string {
	return botIDPrefix + requestID
}

// Attachment references an already-uploaded object. Storage mechanics live
// elsewhere; the chat core only carries the pointer.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// MessageRecord is the durable per-room message log entry. LogicalID is unique;
// fields are written once on first insert and an upsert never mutates an
// already-persisted record.
type MessageRecord struct {
	LogicalID      string
	RoomID         string
	AuthorID       string // empty for bot-authored messages
	Content        string
	Attachments    []Attachment
	Recommendation json.RawMessage // structured AI payload, nil for plain messages
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

// IsBot reports whether the record was authored by the assistant.
func (m MessageRecord) IsBot() bool {
	return m.AuthorID == ""
}

// NewUserMessage validates and shapes a user-authored record ready to persist.
func NewUserMessage(roomID, authorID, clientMessageID, content string, attachments []Attachment, now time.Time) (MessageRecord, error) {
	if clientMessageID == "" {
		return MessageRecord{}, ErrMissingKey
	}
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return MessageRecord{}, ErrEmptyContent
	}
	return MessageRecord{
		LogicalID:   LogicalUserID(clientMessageID),
		RoomID:      roomID,
		AuthorID:    authorID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   now,
		ModifiedAt:  now,
	}, nil
}

// NewBotMessage shapes a bot-authored record keyed by the assist request id.
func NewBotMessage(roomID, requestID, content string, recommendation json.RawMessage, now time.Time) (MessageRecord, error) {
	if requestID == "" {
		return MessageRecord{}, ErrMissingKey
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageRecord{}, ErrEmptyContent
	}
	return MessageRecord{
		LogicalID:      LogicalBotID(requestID),
		RoomID:         roomID,
		Content:        content,
		Recommendation: recommendation,
		CreatedAt:      now,
		ModifiedAt:     now,
	}, nil
}

// ReadWatermark is the monotonic "last read" marker per (room, member).
type ReadWatermark struct {
	RoomID     string
	MemberID   string
	LastReadAt time.Time
}

// RoomActivity is the per-room last-activity marker driving room-list ordering
// for collaborators. Same monotonic-advance rule as the read watermark.
type RoomActivity struct {
	RoomID       string
	LastActiveAt time.Time
}
