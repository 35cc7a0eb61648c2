package directory

import (
	"context"
	"testing"
	"time"

	cacheport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/cache/port"
)

type memCache struct {
	data map[string]string
	gets int
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.gets++
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return "", cacheport.ErrMiss
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *memCache) Del(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

type countingSource struct {
	profiles map[string]Profile
	lookups  int
}

func (s *countingSource) Lookup(ctx context.Context, ids []string) (map[string]Profile, error) {
	s.lookups++
	out := make(map[string]Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestCachedProfilesFillsAndServes(t *testing.T) {
	source := &countingSource{profiles: map[string]Profile{
		"alice": {MemberID: "alice", Name: "Alice"},
		"bob":   {MemberID: "bob", Name: "Bob"},
	}}
	cache := newMemCache()
	cached := NewCachedProfiles(source, cache)
	ctx := context.Background()

	got, err := cached.Lookup(ctx, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 2 || got["alice"].Name != "Alice" {
		t.Fatalf("first lookup: %+v", got)
	}
	if source.lookups != 1 {
		t.Fatalf("source lookups: got %d, want 1", source.lookups)
	}

	// Second lookup is served entirely from cache.
	got, err = cached.Lookup(ctx, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("second lookup: %+v", got)
	}
	if source.lookups != 1 {
		t.Fatalf("cache did not serve the repeat: %d source lookups", source.lookups)
	}
}

func TestCachedProfilesPartialMiss(t *testing.T) {
	source := &countingSource{profiles: map[string]Profile{
		"alice": {MemberID: "alice", Name: "Alice"},
		"bob":   {MemberID: "bob", Name: "Bob"},
	}}
	cache := newMemCache()
	cached := NewCachedProfiles(source, cache)
	ctx := context.Background()

	if _, err := cached.Lookup(ctx, []string{"alice"}); err != nil {
		t.Fatalf("warm alice: %v", err)
	}

	got, err := cached.Lookup(ctx, []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("mixed Lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("mixed lookup: %+v", got)
	}
	// Only the miss goes to the source.
	if source.lookups != 2 {
		t.Fatalf("source lookups: got %d, want 2", source.lookups)
	}
}

func TestCachedProfilesUnknownMemberOmitted(t *testing.T) {
	source := &countingSource{profiles: map[string]Profile{}}
	cached := NewCachedProfiles(source, newMemCache())

	got, err := cached.Lookup(context.Background(), []string{"ghost"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unknown member resolved: %+v", got)
	}
}
