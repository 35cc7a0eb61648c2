package usecase

import (
	"context"
	"fmt"
	"time"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// AdvanceReadWatermarkInput carries one read-receipt update.
type AdvanceReadWatermarkInput struct {
	RoomID     string
	MemberID   string
	LastReadAt time.Time
}

// AdvanceReadWatermarkUseCase applies a read receipt under the monotonic rule:
// the update lands only if it strictly advances the stored watermark, so
// out-of-order or duplicate deliveries cannot move it backwards.
type AdvanceReadWatermarkUseCase struct {
	Repo repository.ChatRepository
}

func NewAdvanceReadWatermarkUseCase(repo repository.ChatRepository) *AdvanceReadWatermarkUseCase {
	return &AdvanceReadWatermarkUseCase{Repo: repo}
}

func (uc *AdvanceReadWatermarkUseCase) Execute(ctx context.Context, in AdvanceReadWatermarkInput) (bool, error) {
	if in.RoomID == "" || in.MemberID == "" {
		return false, fmt.Errorf("room id and member id are required")
	}
	if in.LastReadAt.IsZero() {
		return false, chat.ErrMissingTime
	}

	advanced, err := uc.Repo.AdvanceReadWatermark(ctx, in.RoomID, in.MemberID, in.LastReadAt)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return advanced, nil
}
