package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

func TestBuildAssistContextChronologicalSnapshot(t *testing.T) {
	repo := newMemRepo()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec, _ := chat.NewUserMessage("coach", "alice", fmt.Sprintf("key-%d", i), fmt.Sprintf("msg %d", i), nil, base.Add(time.Duration(i)*time.Minute))
		repo.messages[rec.LogicalID] = rec
	}
	bot, _ := chat.NewBotMessage("coach", "req-1", "reply", nil, base.Add(10*time.Minute))
	repo.messages[bot.LogicalID] = bot

	profiles := &memProfiles{profiles: map[string]directory.Profile{
		"alice": {MemberID: "alice", Name: "Alice"},
	}}
	uc := NewBuildAssistContextUseCase(repo, profiles)

	snap, err := uc.Execute(context.Background(), "coach")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(snap.Records) != 6 {
		t.Fatalf("records: got %d, want 6", len(snap.Records))
	}
	for i := 1; i < len(snap.Records); i++ {
		if snap.Records[i].CreatedAt.Before(snap.Records[i-1].CreatedAt) {
			t.Fatal("snapshot is not chronological")
		}
	}
	if snap.Records[len(snap.Records)-1].LogicalID != bot.LogicalID {
		t.Fatal("newest record must come last")
	}
	if _, ok := snap.Profiles["alice"]; !ok {
		t.Fatal("author profile missing from snapshot")
	}
	// One bulk lookup regardless of how many records an author has.
	if profiles.calls != 1 {
		t.Fatalf("profile lookups: got %d, want 1", profiles.calls)
	}
}

func TestBuildAssistContextDepthLimit(t *testing.T) {
	repo := newMemRepo()
	base := time.Now()
	for i := 0; i < defaultContextDepth+10; i++ {
		rec, _ := chat.NewUserMessage("coach", "alice", fmt.Sprintf("key-%d", i), "msg", nil, base.Add(time.Duration(i)*time.Second))
		repo.messages[rec.LogicalID] = rec
	}
	uc := NewBuildAssistContextUseCase(repo, &memProfiles{})

	snap, err := uc.Execute(context.Background(), "coach")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(snap.Records) != defaultContextDepth {
		t.Fatalf("records: got %d, want %d", len(snap.Records), defaultContextDepth)
	}
	// The limit keeps the newest records, dropping the oldest.
	if snap.Records[0].LogicalID != chat.LogicalUserID("key-10") {
		t.Fatalf("oldest kept record: got %s", snap.Records[0].LogicalID)
	}
}
