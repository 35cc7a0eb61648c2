package chat

import (
	"encoding/json"
	"time"
)

// Client-facing frame shapes. Inbound frames are flat JSON discriminated by
// messageType; outbound frames mirror them plus server-assigned fields.

// InboundFrame is what a connected client sends over the socket.
type InboundFrame struct {
	MessageType     EventType    `json:"messageType"`
	ClientMessageID string       `json:"clientMessageId,omitempty"`
	Content         string       `json:"content,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	Assist          bool         `json:"assist,omitempty"`
	LastReadAt      *time.Time   `json:"lastReadAt,omitempty"`
	DeleteID        string       `json:"deleteId,omitempty"`
}

// OutboundFrame is the canonical server-assigned frame fanned out to every
// live session in the room. Clients de-duplicate by Id.
type OutboundFrame struct {
	MessageType     EventType       `json:"messageType"`
	ID              string          `json:"id,omitempty"`
	RoomID          string          `json:"roomId"`
	ClientMessageID string          `json:"clientMessageId,omitempty"`
	AuthorID        string          `json:"authorId,omitempty"`
	AuthorName      string          `json:"authorName,omitempty"`
	AuthorImageURL  string          `json:"authorImageUrl,omitempty"`
	Content         string          `json:"content,omitempty"`
	Attachments     []Attachment    `json:"attachments,omitempty"`
	Recommendation  json.RawMessage `json:"recommendation,omitempty"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	LastReadAt      *time.Time      `json:"lastReadAt,omitempty"`
	MemberID        string          `json:"memberId,omitempty"`
	DeleteID        string          `json:"deleteId,omitempty"`
}

// ErrorFrame reports a rejected frame without closing the connection.
type ErrorFrame struct {
	MessageType string `json:"messageType"`
	Code        string `json:"code"`
	Error       string `json:"error"`
}

// NewErrorFrame builds the standard error frame payload.
func NewErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{MessageType: "ERROR", Code: code, Error: message}
}
