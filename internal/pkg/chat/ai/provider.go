// Package ai turns conversation snapshots into structured coach
// recommendations. A bot reply is just another producer for the message
// pipeline; nothing here touches sockets or the store.
package ai

import (
	"context"
	"errors"
)

// Message is one turn of the conversation snapshot sent to a provider.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	RoomID   string
	Messages []Message
}

// Recommendation is the structured payload a provider returns. Reply is the
// conversational text; Suggestions carry optional habit/schedule proposals the
// client can render as actions.
type Recommendation struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Provider invokes one model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Recommendation, error)
}

// ErrProvidersExhausted is the terminal orchestrator error: the retry budget
// is spent on every configured provider.
var ErrProvidersExhausted = errors.New("ai: all providers exhausted")
