package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// multipartThreshold is the payload size above which uploads switch to the
// multipart uploader.
const multipartThreshold = 16 << 20

// BlobStore keeps the snapshot as one object in blob storage.
type BlobStore struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	key    string
}

// NewBlobStore creates a BlobStore for the object at key.
func NewBlobStore(w domain.BlobWriter, r domain.BlobReader, key string) *BlobStore {
	return &BlobStore{writer: w, reader: r, key: key}
}

// Name returns the backend identifier.
func (s *BlobStore) Name() string { return "s3" }

// Save uploads data, using a multipart upload for large snapshots.
func (s *BlobStore) Save(ctx context.Context, data []byte) (domain.SnapshotInfo, error) {
	var err error
	if len(data) > multipartThreshold {
		err = s.writer.PutMultipart(ctx, s.key, bytes.NewReader(data), 0)
	} else {
		err = s.writer.Put(ctx, s.key, bytes.NewReader(data), "text/csv")
	}
	if err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: blob: save: %w", err)
	}
	return domain.SnapshotInfo{
		Backend:  s.Name(),
		Location: s.key,
		Size:     int64(len(data)),
		SavedAt:  time.Now().UTC(),
	}, nil
}

// Load downloads the snapshot or returns domain.ErrNoSnapshot.
func (s *BlobStore) Load(ctx context.Context) ([]byte, error) {
	ok, err := s.reader.Exists(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("snapshot: blob: exists: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("snapshot: blob %s: %w", s.key, domain.ErrNoSnapshot)
	}
	rc, err := s.reader.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("snapshot: blob %s: %w", s.key, domain.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("snapshot: blob: get: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: blob: read: %w", err)
	}
	return data, nil
}

var _ domain.SnapshotStore = (*BlobStore)(nil)
