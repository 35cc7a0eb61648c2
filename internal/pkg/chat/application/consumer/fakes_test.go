package consumer

import (
	"context"
	"sort"
	"sync"
	"time"

	queueport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/queue/port"
	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/directory"
	chat "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/domain"
	repository "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/pkg/chat/persistence/repository/port"
)

// memRepo backs the pipeline tests with the store's conditional-write
// semantics in memory.
type memRepo struct {
	messages   map[string]chat.MessageRecord
	watermarks map[string]time.Time
	activity   map[string]time.Time
	failNext   error
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
	var out []chat.MessageRecord
	for _, rec := range r.messages {
		if rec.RoomID == roomID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) DeleteMessage(ctx context.Context, roomID, logicalID, requesterID string) (bool, error) {
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
	key := roomID + "|" + memberID
	if stored, ok := r.watermarks[key]; ok && !t.After(stored) {
		return false, nil
	}
	r.watermarks[key] = t
	return true, nil
}

func (r *memRepo) TouchRoomActivity(ctx context.Context, roomID string, t time.Time) (bool, error) {
	if stored, ok := r.activity[roomID]; ok && !t.After(stored) {
		return false, nil
	}
	r.activity[roomID] = t
	return true, nil
}

func (r *memRepo) RoomWatermarks(ctx context.Context, roomID string) ([]chat.ReadWatermark, error) {
	return nil, nil
}

type memMembership struct {
	rooms   map[string]bool
	members map[string]map[string]bool
}

func (m *memMembership) IsMember(ctx context.Context, roomID, memberID string) (bool, error) {
	if _, ok := m.rooms[roomID]; !ok {
		return false, chat.ErrUnknownRoom
	}
	return m.members[roomID][memberID], nil
}

func (m *memMembership) IsBotRoom(ctx context.Context, roomID string) (bool, error) {
	bot, ok := m.rooms[roomID]
	if !ok {
		return false, chat.ErrUnknownRoom
	}
	return bot, nil
}

type memProfiles struct {
	profiles map[string]directory.Profile
}

func (p *memProfiles) Lookup(ctx context.Context, ids []string) (map[string]directory.Profile, error) {
	out := make(map[string]directory.Profile, len(ids))
	for _, id := range ids {
		if prof, ok := p.profiles[id]; ok {
			out[id] = prof
		}
	}
	return out, nil
}

// published is one captured Publish call.
type published struct {
	topic   string
	key     string
	payload []byte
}

type capturePublisher struct {
	mu    sync.Mutex
	calls []published
	err   error
}

func (p *capturePublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	p.calls = append(p.calls, published{topic: topic, key: key, payload: buf})
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) onTopic(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, c := range p.calls {
		if c.topic == topic {
			out = append(out, c)
		}
	}
	return out
}

type captureJobs struct {
	mu    sync.Mutex
	tasks []queueport.Task
	opts  []queueport.EnqueueOption
}

func (j *captureJobs) Enqueue(ctx context.Context, t queueport.Task, opts ...queueport.EnqueueOption) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tasks = append(j.tasks, t)
	if len(opts) > 0 {
		j.opts = append(j.opts, opts[0])
	} else {
		j.opts = append(j.opts, queueport.EnqueueOption{})
	}
	return "task-id", nil
}

func (j *captureJobs) Close() error { return nil }
