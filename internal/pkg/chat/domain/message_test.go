package chat

import (
	"testing"
	"time"
)

func TestLogicalIDNamespaces(t *testing.T) {
	// A client key and a request id with the same raw value must still map to
	// distinct records.
	if LogicalUserID("abc") == LogicalBotID("abc") {
		t.Fatal("user and bot logical ids must never collide")
	}
}

func TestNewUserMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := NewUserMessage("r1", "alice", "key-1", "  hello  ", nil, now)
	if err != nil {
		t.Fatalf("NewUserMessage: %v", err)
	}
	if rec.LogicalID != "usr:key-1" {
		t.Fatalf("LogicalID: got %q", rec.LogicalID)
	}
	if rec.Content != "hello" {
		t.Fatalf("Content not trimmed: got %q", rec.Content)
	}
	if rec.IsBot() {
		t.Fatal("user message reported as bot")
	}

	if _, err := NewUserMessage("r1", "alice", "", "hi", nil, now); err != ErrMissingKey {
		t.Fatalf("missing key: got %v, want ErrMissingKey", err)
	}
	if _, err := NewUserMessage("r1", "alice", "key-2", "   ", nil, now); err != ErrEmptyContent {
		t.Fatalf("blank content: got %v, want ErrEmptyContent", err)
	}

	// Attachment-only messages are valid.
	att := []Attachment{{URL: "https://cdn.example.com/a.png"}}
	if _, err := NewUserMessage("r1", "alice", "key-3", "", att, now); err != nil {
		t.Fatalf("attachment-only message: %v", err)
	}
}

func TestNewBotMessage(t *testing.T) {
	now := time.Now()

	rec, err := NewBotMessage("r1", "req-1", "try a shorter walk", []byte(`{"reply":"x"}`), now)
	if err != nil {
		t.Fatalf("NewBotMessage: %v", err)
	}
	if rec.LogicalID != "bot:req-1" {
		t.Fatalf("LogicalID: got %q", rec.LogicalID)
	}
	if !rec.IsBot() {
		t.Fatal("bot message not reported as bot")
	}

	if _, err := NewBotMessage("r1", "", "hi", nil, now); err != ErrMissingKey {
		t.Fatalf("missing request id: got %v, want ErrMissingKey", err)
	}
}
