package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// PersistMessageUseCase is the durability boundary of the pipeline: it gates
// the record against room membership and performs the idempotent upsert. Any
// redelivery after the first success is a no-op returning the stored record.
type PersistMessageUseCase struct {
	Repo    repository.ChatRepository
	Members directory.Membership
}

func NewPersistMessageUseCase(repo repository.ChatRepository, members directory.Membership) *PersistMessageUseCase {
	return &PersistMessageUseCase{Repo: repo, Members: members}
}

// Execute persists the record. inserted reports whether this call won the
// insert; false means an earlier delivery already did.
func (uc *PersistMessageUseCase) Execute(ctx context.Context, rec chat.MessageRecord) (chat.MessageRecord, bool, error) {
	if rec.LogicalID == "" || rec.RoomID == "" {
		return chat.MessageRecord{}, false, fmt.Errorf("logical id and room id are required")
	}

	if rec.IsBot() {
		// Bot authors carry no membership; the room just has to exist.
		if _, err := uc.Members.IsBotRoom(ctx, rec.RoomID); err != nil {
			return chat.MessageRecord{}, false, classifyMembershipErr(err)
		}
	} else {
		ok, err := uc.Members.IsMember(ctx, rec.RoomID, rec.AuthorID)
		if err != nil {
			return chat.MessageRecord{}, false, classifyMembershipErr(err)
		}
		if !ok {
			return chat.MessageRecord{}, false, chat.ErrNotMember
		}
	}

	stored, inserted, err := uc.Repo.UpsertMessage(ctx, rec)
	if err != nil {
		return chat.MessageRecord{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if inserted {
		if _, err := uc.Repo.TouchRoomActivity(ctx, stored.RoomID, stored.CreatedAt); err != nil {
			// The message is durable; a redelivery re-enters here with a no-op
			// upsert and retries the activity touch.
			return chat.MessageRecord{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	return stored, inserted, nil
}

func classifyMembershipErr(err error) error {
	if errors.Is(err, chat.ErrUnknownRoom) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
