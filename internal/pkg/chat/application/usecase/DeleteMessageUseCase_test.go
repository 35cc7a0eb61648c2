package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

func seedMessage(t *testing.T, repo *memRepo, roomID, authorID, key string) chat.MessageRecord {
	t.Helper()
	rec, err := chat.NewUserMessage(roomID, authorID, key, "content", nil, time.Now())
	if err != nil {
		t.Fatalf("NewUserMessage: %v", err)
	}
	if _, _, err := repo.UpsertMessage(context.Background(), rec); err != nil {
		t.Fatalf("UpsertMessage: %v", err)
	}
	return rec
}

func TestDeleteMessageByAuthor(t *testing.T) {
	repo := newMemRepo()
	uc := NewDeleteMessageUseCase(repo)
	rec := seedMessage(t, repo, "team", "alice", "key-1")

	deleted, err := uc.Execute(context.Background(), DeleteMessageInput{
		RoomID: "team", RequesterID: "alice", DeleteID: rec.LogicalID,
	})
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}

	// The second delivery finds nothing and stays silent.
	deleted, err = uc.Execute(context.Background(), DeleteMessageInput{
		RoomID: "team", RequesterID: "alice", DeleteID: rec.LogicalID,
	})
	if err != nil {
		t.Fatalf("redelivered delete: %v", err)
	}
	if deleted {
		t.Fatal("redelivered delete reported a deletion")
	}
}

func TestDeleteMessageRejectsNonAuthor(t *testing.T) {
	repo := newMemRepo()
	uc := NewDeleteMessageUseCase(repo)
	rec := seedMessage(t, repo, "team", "alice", "key-1")

	_, err := uc.Execute(context.Background(), DeleteMessageInput{
		RoomID: "team", RequesterID: "bob", DeleteID: rec.LogicalID,
	})
	if !errors.Is(err, chat.ErrNotAuthor) {
		t.Fatalf("non-author delete: got %v, want ErrNotAuthor", err)
	}
	if _, ok := repo.messages[rec.LogicalID]; !ok {
		t.Fatal("message must survive a non-author delete")
	}
}

func TestDeleteMessageScopedToRoom(t *testing.T) {
	repo := newMemRepo()
	uc := NewDeleteMessageUseCase(repo)
	rec := seedMessage(t, repo, "team", "alice", "key-1")

	// Same author, same logical id, different room: a silent no-op, the
	// original record stays.
	deleted, err := uc.Execute(context.Background(), DeleteMessageInput{
		RoomID: "direct", RequesterID: "alice", DeleteID: rec.LogicalID,
	})
	if err != nil {
		t.Fatalf("cross-room delete: %v", err)
	}
	if deleted {
		t.Fatal("cross-room delete reported a deletion")
	}
	if _, ok := repo.messages[rec.LogicalID]; !ok {
		t.Fatal("message must survive a delete addressed to another room")
	}
}

func TestDeleteMessageValidation(t *testing.T) {
	uc := NewDeleteMessageUseCase(newMemRepo())

	if _, err := uc.Execute(context.Background(), DeleteMessageInput{RoomID: "team", RequesterID: "alice"}); !errors.Is(err, chat.ErrMissingTarget) {
		t.Fatalf("missing target: got %v, want ErrMissingTarget", err)
	}
	if _, err := uc.Execute(context.Background(), DeleteMessageInput{RequesterID: "alice", DeleteID: "usr:key-1"}); !errors.Is(err, chat.ErrUnknownRoom) {
		t.Fatalf("missing room: got %v, want ErrUnknownRoom", err)
	}
	if _, err := uc.Execute(context.Background(), DeleteMessageInput{RoomID: "team", DeleteID: "usr:key-1"}); err == nil {
		t.Fatal("missing requester must fail")
	}
}
