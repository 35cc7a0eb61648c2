package repository

import (
	"context"
	"errors"
	"time"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// ErrNotFound signals that no record matched the lookup.
var ErrNotFound = errors.New("repository: not found")

// ChatRepository defines the durable operations of the realtime core: the
// idempotent message log and the monotonic read/activity trackers.
type ChatRepository interface {
	// UpsertMessage inserts rec if no record with its logical id exists and
	// returns the stored record. When a record already exists it is returned
	// unchanged and inserted is false; an upsert never mutates persisted
	// fields. The insert must be a single atomic conditional write.
	UpsertMessage(ctx context.Context, rec chat.MessageRecord) (stored chat.MessageRecord, inserted bool, err error)

	// FindMessage fetches one record by logical id, or ErrNotFound.
	FindMessage(ctx context.Context, logicalID string) (chat.MessageRecord, error)

	// ListRoomMessages returns up to limit records for the room, newest first,
	// strictly older than before when before is non-zero.
	ListRoomMessages(ctx context.Context, roomID string, limit int, before time.Time) ([]chat.MessageRecord, error)

	// DeleteMessage removes the record if it lives in roomID and requesterID
	// authored it. Deleting a record that is missing, or that belongs to a
	// different room, is a silent no-op (false, nil); a requester who is not
	// the author gets chat.ErrNotAuthor.
	DeleteMessage(ctx context.Context, roomID, logicalID, requesterID string) (deleted bool, err error)

	// AdvanceReadWatermark applies t only if it strictly exceeds the stored
	// watermark for (room, member). Reports whether it advanced.
	AdvanceReadWatermark(ctx context.Context, roomID, memberID string, t time.Time) (advanced bool, err error)

	// TouchRoomActivity advances the room's last-activity time under the same
	// monotonic rule.
	TouchRoomActivity(ctx context.Context, roomID string, t time.Time) (advanced bool, err error)

	// RoomWatermarks lists every member watermark for a room.
	RoomWatermarks(ctx context.Context, roomID string) ([]chat.ReadWatermark, error)
}
