package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// SnapshotCache implements domain.SnapshotStore with two string keys:
//
//	{prefix}snapshot           - CSV payload
//	{prefix}snapshot:saved_at  - RFC 3339 save time
//
// Both are written in one transaction with the same TTL. A zero TTL keeps
// them forever.
type SnapshotCache struct {
	rdb        *redis.Client
	dataKey    string
	savedAtKey string
	ttl        time.Duration
	now        func() time.Time
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client. The
// keys live under the client's prefix; ttl bounds how long a snapshot
// survives without being refreshed.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		rdb:        c.rdb,
		dataKey:    c.Key("snapshot"),
		savedAtKey: c.Key("snapshot", "saved_at"),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Name returns the backend identifier.
func (sc *SnapshotCache) Name() string { return "redis" }

// Save replaces the stored snapshot with data and records the save time. Both
// keys are written in a single MULTI/EXEC so a reader never sees a payload
// paired with a stale timestamp. The returned info names the data key as its
// location.
func (sc *SnapshotCache) Save(ctx context.Context, data []byte) (domain.SnapshotInfo, error) {
	savedAt := sc.now().UTC()

	pipe := sc.rdb.TxPipeline()
	pipe.Set(ctx, sc.dataKey, data, sc.ttl)
	pipe.Set(ctx, sc.savedAtKey, savedAt.Format(time.RFC3339), sc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("redis: save snapshot: %w", err)
	}
	return domain.SnapshotInfo{
		Backend:  sc.Name(),
		Location: sc.dataKey,
		Size:     int64(len(data)),
		SavedAt:  savedAt,
	}, nil
}

// Load returns the stored CSV payload. Returns domain.ErrNoSnapshot when the
// key is absent, including after the TTL has expired; any other Redis error
// is propagated.
func (sc *SnapshotCache) Load(ctx context.Context) ([]byte, error) {
	data, err := sc.rdb.Get(ctx, sc.dataKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis: %s: %w", sc.dataKey, domain.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("redis: load snapshot: %w", err)
	}
	return data, nil
}

// SavedAt returns when the stored snapshot was written, in UTC. Returns
// domain.ErrNoSnapshot if no snapshot is stored.
func (sc *SnapshotCache) SavedAt(ctx context.Context) (time.Time, error) {
	raw, err := sc.rdb.Get(ctx, sc.savedAtKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, domain.ErrNoSnapshot
		}
		return time.Time{}, fmt.Errorf("redis: snapshot saved_at: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: parse saved_at %q: %w", raw, err)
	}
	return t, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotCache)(nil)
