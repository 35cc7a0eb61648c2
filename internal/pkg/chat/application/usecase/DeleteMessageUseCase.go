package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// DeleteMessageInput identifies the message and the member asking to remove it.
type DeleteMessageInput struct {
	RoomID      string
	RequesterID string
	DeleteID    string // logical id of the target message
}

// DeleteMessageUseCase removes a message on behalf of its author. Deleting a
// message that is already gone is a silent no-op; deleting someone else's
// message is a semantic error.
type DeleteMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewDeleteMessageUseCase(repo repository.ChatRepository) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{Repo: repo}
}

func (uc *DeleteMessageUseCase) Execute(ctx context.Context, in DeleteMessageInput) (bool, error) {
	if in.DeleteID == "" {
		return false, chat.ErrMissingTarget
	}
	if in.RoomID == "" {
		return false, chat.ErrUnknownRoom
	}
	if in.RequesterID == "" {
		return false, fmt.Errorf("requester id is required")
	}

	// The room scope keeps a delete frame from reaching the author's messages
	// in other rooms that happen to share a client message id.
	deleted, err := uc.Repo.DeleteMessage(ctx, in.RoomID, in.DeleteID, in.RequesterID)
	if err != nil {
		if errors.Is(err, chat.ErrNotAuthor) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return deleted, nil
}
