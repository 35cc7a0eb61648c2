package chat

import (
	"errors"
	"testing"
	"time"
)

func TestEnvelopeValidate(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		env     Envelope
		wantErr error
	}{
		{
			name: "valid message",
			env: Envelope{Type: EventMessage, RoomID: "r1",
				Message: &MessageEvent{ClientMessageID: "k1", Content: "hi", SentAt: now}},
		},
		{
			name: "message without key",
			env: Envelope{Type: EventMessage, RoomID: "r1",
				Message: &MessageEvent{Content: "hi", SentAt: now}},
			wantErr: ErrMissingKey,
		},
		{
			name: "message without content or attachments",
			env: Envelope{Type: EventMessage, RoomID: "r1",
				Message: &MessageEvent{ClientMessageID: "k1", SentAt: now}},
			wantErr: ErrEmptyContent,
		},
		{
			name: "valid read",
			env: Envelope{Type: EventReadUpTo, RoomID: "r1",
				ReadUpTo: &ReadUpToEvent{MemberID: "alice", LastReadAt: now}},
		},
		{
			name: "read without timestamp",
			env: Envelope{Type: EventReadUpTo, RoomID: "r1",
				ReadUpTo: &ReadUpToEvent{MemberID: "alice"}},
			wantErr: ErrMissingTime,
		},
		{
			name: "delete without target",
			env: Envelope{Type: EventDelete, RoomID: "r1",
				Delete: &DeleteEvent{MemberID: "alice"}},
			wantErr: ErrMissingTarget,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.env.Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate: got %v, want %v", err, tc.wantErr)
			}
		})
	}

	if err := (Envelope{Type: EventMessage}).Validate(); err == nil {
		t.Fatal("envelope without room id must not validate")
	}
	if err := (Envelope{Type: "NOPE", RoomID: "r1"}).Validate(); err == nil {
		t.Fatal("unknown event type must not validate")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := Envelope{
		Type:   EventMessage,
		RoomID: "r1",
		Message: &MessageEvent{
			ClientMessageID: "k1",
			AuthorID:        "alice",
			Content:         "hello",
			Assist:          true,
			SentAt:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if out.Message == nil || out.Message.ClientMessageID != "k1" || !out.Message.Assist {
		t.Fatalf("round trip lost fields: %+v", out)
	}

	if _, err := DecodeEnvelope([]byte("not json")); err == nil {
		t.Fatal("malformed payload must not decode")
	}
}
