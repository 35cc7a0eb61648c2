package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
)

// PgMembership answers membership questions against the collaborator-owned
// room tables. Reads only; the chat core never writes these tables.
type PgMembership struct {
	pool *pgxpool.Pool
}

var _ Membership = (*PgMembership)(nil)

func NewPgMembership(pool *pgxpool.Pool) *PgMembership {
	return &PgMembership{pool: pool}
}

func (m *PgMembership) IsMember(ctx context.Context, roomID, memberID string) (bool, error) {
	var isBot bool
	err := m.pool.QueryRow(ctx,
		`SELECT is_bot FROM app.room WHERE id = $1`, roomID,
	).Scan(&isBot)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, chat.ErrUnknownRoom
	}
	if err != nil {
		return false, err
	}

	var exists bool
	err = m.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM app.room_member WHERE room_id = $1 AND member_id = $2)`,
		roomID, memberID,
	).Scan(&exists)
	return exists, err
}

func (m *PgMembership) IsBotRoom(ctx context.Context, roomID string) (bool, error) {
	var isBot bool
	err := m.pool.QueryRow(ctx,
		`SELECT is_bot FROM app.room WHERE id = $1`, roomID,
	).Scan(&isBot)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, chat.ErrUnknownRoom
	}
	return isBot, err
}

// PgProfiles resolves display fields from the collaborator profile table.
type PgProfiles struct {
	pool *pgxpool.Pool
}

var _ Profiles = (*PgProfiles)(nil)

func NewPgProfiles(pool *pgxpool.Pool) *PgProfiles {
	return &PgProfiles{pool: pool}
}

func (p *PgProfiles) Lookup(ctx context.Context, memberIDs []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, COALESCE(image_url, '')
		FROM app.profile
		WHERE id = ANY($1)
	`, memberIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr Profile
		if err := rows.Scan(&pr.MemberID, &pr.Name, &pr.ImageURL); err != nil {
			return nil, err
		}
		out[pr.MemberID] = pr
	}
	return out, rows.Err()
}
