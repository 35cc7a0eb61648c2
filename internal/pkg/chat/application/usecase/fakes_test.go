package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// memRepo is an in-memory ChatRepository with the same conditional-write
// semantics as the SQL adapter.
type memRepo struct {
	messages   map[string]chat.MessageRecord
	watermarks map[string]time.Time
	activity   map[string]time.Time

	failNext error // returned by the next mutating call, then cleared
	upserts  int
}

func newMemRepo() *memRepo {
	return &memRepo{
		messages:   make(map[string]chat.MessageRecord),
		watermarks: make(map[string]time.Time),
		activity:   make(map[string]time.Time),
	}
}

func (r *memRepo) takeFailure() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *memRepo) UpsertMessage(ctx context.Context, rec chat.MessageRecord) (chat.MessageRecord, bool, error) {
	if err := r.takeFailure(); err != nil {
		return chat.MessageRecord{}, false, err
	}
	r.upserts++
	if existing, ok := r.messages[rec.LogicalID]; ok {
		return existing, false, nil
	}
	r.messages[rec.LogicalID] = rec
	return rec, true, nil
}

func (r *memRepo) FindMessage(ctx context.Context, logicalID string) (chat.MessageRecord, error) {
	if rec, ok := r.messages[logicalID]; ok {
		return rec, nil
	}
	return chat.MessageRecord{}, repository.ErrNotFound
}

func (r *memRepo) ListRoomMessages(ctx context.Context, roomID string, limit int, before time.Time) ([]chat.MessageRecord, error) {
	if err := r.takeFailure(); err != nil {
		return nil, err
	}
	var out []chat.MessageRecord
	for _, rec := range r.messages {
		if rec.RoomID != roomID {
			continue
		}
		if !before.IsZero() && !rec.CreatedAt.Before(before) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) DeleteMessage(ctx context.Context, roomID, logicalID, requesterID string) (bool, error) {
	if err := r.takeFailure(); err != nil {
		return false, err
	}
	rec, ok := r.messages[logicalID]
	if !ok || rec.RoomID != roomID {
		return false, nil
	}
	if rec.AuthorID != requesterID {
		return false, chat.ErrNotAuthor
	}
	delete(r.messages, logicalID)
	return true, nil
}

func (r *memRepo) AdvanceReadWatermark(ctx context.Context, roomID, memberID string, t time.Time) (bool, error) {
	if err := r.takeFailure(); err != nil {
		return false, err
	}
	key := roomID + "|" + memberID
	if stored, ok := r.watermarks[key]; ok && !t.After(stored) {
		return false, nil
	}
	r.watermarks[key] = t
	return true, nil
}

func (r *memRepo) TouchRoomActivity(ctx context.Context, roomID string, t time.Time) (bool, error) {
	if err := r.takeFailure(); err != nil {
		return false, err
	}
	if stored, ok := r.activity[roomID]; ok && !t.After(stored) {
		return false, nil
	}
	r.activity[roomID] = t
	return true, nil
}

func (r *memRepo) RoomWatermarks(ctx context.Context, roomID string) ([]chat.ReadWatermark, error) {
	var out []chat.ReadWatermark
	for key, t := range r.watermarks {
		for i := 0; i < len(key); i++ {
			if key[i] == '|' {
				if key[:i] == roomID {
					out = append(out, chat.ReadWatermark{RoomID: roomID, MemberID: key[i+1:], LastReadAt: t})
				}
				break
			}
		}
	}
	return out, nil
}

// memMembership is a fixed room directory for tests.
type memMembership struct {
	rooms   map[string]bool            // roomID -> is bot room
	members map[string]map[string]bool // roomID -> memberID
	err     error
}

func (m *memMembership) IsMember(ctx context.Context, roomID, memberID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.rooms[roomID]; !ok {
		return false, chat.ErrUnknownRoom
	}
	return m.members[roomID][memberID], nil
}

func (m *memMembership) IsBotRoom(ctx context.Context, roomID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	bot, ok := m.rooms[roomID]
	if !ok {
		return false, chat.ErrUnknownRoom
	}
	return bot, nil
}

type memProfiles struct {
	profiles map[string]directory.Profile
	calls    int
}

func (p *memProfiles) Lookup(ctx context.Context, ids []string) (map[string]directory.Profile, error) {
	p.calls++
	out := make(map[string]directory.Profile, len(ids))
	for _, id := range ids {
		if prof, ok := p.profiles[id]; ok {
			out[id] = prof
		}
	}
	return out, nil
}
