package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

const defaultContextDepth = 20

// AssistContext is the conversation snapshot handed to the AI orchestrator:
// recent records oldest-first plus the display names to attribute them.
type AssistContext struct {
	Records  []chat.MessageRecord
	Profiles map[string]directory.Profile
}

// BuildAssistContextUseCase snapshots recent room history for an AI request.
type BuildAssistContextUseCase struct {
	Repo     repository.ChatRepository
	Profiles directory.Profiles
}

func NewBuildAssistContextUseCase(repo repository.ChatRepository, profiles directory.Profiles) *BuildAssistContextUseCase {
	return &BuildAssistContextUseCase{Repo: repo, Profiles: profiles}
}

func (uc *BuildAssistContextUseCase) Execute(ctx context.Context, roomID string) (AssistContext, error) {
	if roomID == "" {
		return AssistContext{}, fmt.Errorf("room id is required")
	}

	records, err := uc.Repo.ListRoomMessages(ctx, roomID, defaultContextDepth, time.Time{})
	if err != nil {
		return AssistContext{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// ListRoomMessages returns newest first; the model wants chronological.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.AuthorID == "" {
			continue
		}
		if _, ok := seen[r.AuthorID]; ok {
			continue
		}
		seen[r.AuthorID] = struct{}{}
		ids = append(ids, r.AuthorID)
	}

	profiles, err := uc.Profiles.Lookup(ctx, ids)
	if err != nil {
		return AssistContext{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return AssistContext{Records: records, Profiles: profiles}, nil
}
