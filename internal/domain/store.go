package domain

import (
	"context"
	"io"
	"time"
)

// SnapshotInfo describes the stored snapshot.
type SnapshotInfo struct {
	Backend  string    `json:"backend"`
	Location string    `json:"location"`
	Size     int64     `json:"size"`
	SavedAt  time.Time `json:"saved_at"`
}

// SnapshotStore keeps the most recent fetched dataset, encoded as CSV.
// Load returns ErrNoSnapshot when nothing has been stored yet.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) (SnapshotInfo, error)
	Load(ctx context.Context) ([]byte, error)
	Name() string
}

// MarketSource produces a fresh raw dataset from the upstream API.
type MarketSource interface {
	FetchRows(ctx context.Context) (RawTable, error)
}

// RefreshLock serialises refreshes across processes sharing a snapshot
// backend. Acquire returns ErrLockHeld when another holder owns key.
type RefreshLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BlobWriter uploads snapshot objects. PutMultipart is used for payloads too
// large for a single request; a zero partSize picks the uploader default.
type BlobWriter interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	PutMultipart(ctx context.Context, key string, body io.Reader, partSize int64) error
}

// BlobReader downloads snapshot objects. Get returns ErrNotFound for a
// missing key.
type BlobReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
