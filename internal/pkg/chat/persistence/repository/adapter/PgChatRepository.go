package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// PgChatRepository implements the chat repository on PostgreSQL. The logical
// id uniqueness constraint is the arbiter of idempotency: the conditional
// insert either wins or is a no-op, never a read-then-write race.
type PgChatRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const messageColumns = `logical_id, room_id, author_id, content, attachments, recommendation, created_at, modified_at`

func (r *PgChatRepository) UpsertMessage(ctx context.Context, rec chat.MessageRecord) (chat.MessageRecord, bool, error) {
	attachments, err := marshalAttachments(rec.Attachments)
	if err != nil {
		return chat.MessageRecord{}, false, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO chat.message (`+messageColumns+`)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (logical_id) DO NOTHING
		RETURNING `+messageColumns,
		rec.LogicalID, rec.RoomID, rec.AuthorID, rec.Content, attachments, rec.Recommendation, rec.CreatedAt, rec.ModifiedAt,
	)
	stored, err := scanMessage(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return chat.MessageRecord{}, false, err
	}

	// Conflict: the insert lost to an earlier delivery. Return the winner.
	existing, err := r.FindMessage(ctx, rec.LogicalID)
	if err != nil {
		return chat.MessageRecord{}, false, err
	}
	return existing, false, nil
}

func (r *PgChatRepository) FindMessage(ctx context.Context, logicalID string) (chat.MessageRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM chat.message
		WHERE logical_id = $1
	`, logicalID)
	rec, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.MessageRecord{}, repository.ErrNotFound
	}
	return rec, err
}

func (r *PgChatRepository) ListRoomMessages(ctx context.Context, roomID string, limit int, before time.Time) ([]chat.MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + messageColumns + `
		FROM chat.message
		WHERE room_id = $1
	`
	args := []any{roomID}
	if !before.IsZero() {
		query += ` AND created_at < $2`
		args = append(args, before)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.MessageRecord
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, rec)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) DeleteMessage(ctx context.Context, roomID, logicalID, requesterID string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM chat.message
		WHERE room_id = $1 AND logical_id = $2 AND author_id = $3
	`, roomID, logicalID, requesterID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing deleted: either the record is not in this room (no-op, same as
	// already gone) or it belongs to someone else.
	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat.message WHERE room_id = $1 AND logical_id = $2)`, roomID, logicalID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists {
		return false, chat.ErrNotAuthor
	}
	return false, nil
}

func (r *PgChatRepository) AdvanceReadWatermark(ctx context.Context, roomID, memberID string, t time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO chat.read_watermark (room_id, member_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, member_id)
		DO UPDATE SET last_read_at = EXCLUDED.last_read_at
		WHERE chat.read_watermark.last_read_at < EXCLUDED.last_read_at
	`, roomID, memberID, t)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgChatRepository) TouchRoomActivity(ctx context.Context, roomID string, t time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		INSERT INTO chat.room_activity (room_id, last_active_at)
		VALUES ($1, $2)
		ON CONFLICT (room_id)
		DO UPDATE SET last_active_at = EXCLUDED.last_active_at
		WHERE chat.room_activity.last_active_at < EXCLUDED.last_active_at
	`, roomID, t)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgChatRepository) RoomWatermarks(ctx context.Context, roomID string) ([]chat.ReadWatermark, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT room_id, member_id, last_read_at
		FROM chat.read_watermark
		WHERE room_id = $1
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []chat.ReadWatermark
	for rows.Next() {
		var w chat.ReadWatermark
		if err := rows.Scan(&w.RoomID, &w.MemberID, &w.LastReadAt); err != nil {
			return nil, err
		}
		marks = append(marks, w)
	}
	return marks, rows.Err()
}

func scanMessage(row pgx.Row) (chat.MessageRecord, error) {
	var (
		rec         chat.MessageRecord
		authorID    *string
		attachments []byte
		reco        []byte
	)
	err := row.Scan(&rec.LogicalID, &rec.RoomID, &authorID, &rec.Content, &attachments, &reco, &rec.CreatedAt, &rec.ModifiedAt)
	if err != nil {
		return chat.MessageRecord{}, err
	}
	if authorID != nil {
		rec.AuthorID = *authorID
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &rec.Attachments); err != nil {
			return chat.MessageRecord{}, fmt.Errorf("message attachments: %w", err)
		}
	}
	if len(reco) > 0 {
		rec.Recommendation = json.RawMessage(reco)
	}
	return rec, nil
}

func marshalAttachments(a []chat.Attachment) ([]byte, error) {
	if len(a) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("message attachments: %w", err)
	}
	return b, nil
}
