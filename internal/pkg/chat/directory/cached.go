package directory

import (
	"context"
	"encoding/json"
	"time"

	cacheport "github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/infrastructure/cache/port"
)

const profileTTL = 5 * time.Minute

// CachedProfiles layers a cache in front of another Profiles source. Display
// fields change rarely and are resolved on every fan-out, so short-lived
// caching pays for itself quickly.
type CachedProfiles struct {
	source Profiles
	cache  cacheport.Cache
}

var _ Profiles = (*CachedProfiles)(nil)

func NewCachedProfiles(source Profiles, cache cacheport.Cache) *CachedProfiles {
	return &CachedProfiles{source: source, cache: cache}
}

func (c *CachedProfiles) Lookup(ctx context.Context, memberIDs []string) (map[string]Profile, error) {
	out := make(map[string]Profile, len(memberIDs))
	var missing []string
	for _, id := range memberIDs {
		raw, err := c.cache.Get(ctx, profileKey(id))
		if err != nil {
			// Treat any cache trouble as a miss; the source is authoritative.
			missing = append(missing, id)
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			missing = append(missing, id)
			continue
		}
		out[p.MemberID] = p
	}

	if len(missing) == 0 {
		return out, nil
	}
	fresh, err := c.source.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fresh {
		out[id] = p
		if raw, err := json.Marshal(p); err == nil {
			_ = c.cache.Set(ctx, profileKey(id), string(raw), profileTTL)
		}
	}
	return out, nil
}

func profileKey(memberID string) string {
	return "chat:profile:" + memberID
}
