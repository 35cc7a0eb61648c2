package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestHTTPProviderCompleteStructuredReply(t *testing.T) {
	var gotReq chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization: got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"reply":"start with 5 minutes","suggestions":["morning walk"]}`)))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, APIKey: "secret", Model: "test-model"})
	rec, err := p.Complete(context.Background(), Request{
		RoomID: "r1",
		Messages: []Message{
			{Role: "user", Author: "Alice", Content: "how do I start?"},
			{Role: "assistant", Content: "one step at a time"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.Reply != "start with 5 minutes" || len(rec.Suggestions) != 1 {
		t.Fatalf("recommendation: %+v", rec)
	}

	// System prompt first, then the snapshot with author attribution folded in.
	if len(gotReq.Messages) != 3 {
		t.Fatalf("turns: got %d, want 3", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Fatalf("first turn role: got %q", gotReq.Messages[0].Role)
	}
	if gotReq.Messages[1].Content != "Alice: how do I start?" {
		t.Fatalf("attributed turn: got %q", gotReq.Messages[1].Content)
	}
	if gotReq.Model != "test-model" {
		t.Fatalf("model: got %q", gotReq.Model)
	}
}

func TestHTTPProviderCompletePlainTextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionResponse("just keep going")))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL})
	rec, err := p.Complete(context.Background(), Request{RoomID: "r1"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.Reply != "just keep going" {
		t.Fatalf("reply: got %q", rec.Reply)
	}
}

func TestHTTPProviderCompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("X-Case") {
		case "status":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		case "empty":
			_, _ = w.Write([]byte(`{"choices":[]}`))
		default:
			_, _ = w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	for _, tc := range []string{"status", "empty", "garbage"} {
		p := NewHTTPProvider(HTTPProviderConfig{
			BaseURL: srv.URL,
			HTTPClient: &http.Client{Transport: headerTransport{inner: http.DefaultTransport, c: tc}},
		})
		if _, err := p.Complete(context.Background(), Request{RoomID: "r1"}); err == nil {
			t.Fatalf("case %s: expected an error", tc)
		}
	}
}

type headerTransport struct {
	inner http.RoundTripper
	c     string
}

func (t headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r.Header.Set("X-Case", t.c)
	return t.inner.RoundTrip(r)
}
