package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// FileStore keeps the snapshot as a single CSV file on local disk. Writes go
// to a temporary file in the same directory and are renamed into place, so a
// failed save never leaves a truncated snapshot behind.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name returns the backend identifier.
func (s *FileStore) Name() string { return "file" }

// Save replaces the stored snapshot with data.
func (s *FileStore) Save(_ context.Context, data []byte) (domain.SnapshotInfo, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: file: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: file: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: file: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("snapshot: file: rename: %w", err)
	}
	return domain.SnapshotInfo{
		Backend:  s.Name(),
		Location: s.path,
		Size:     int64(len(data)),
		SavedAt:  time.Now().UTC(),
	}, nil
}

// Load returns the stored snapshot or domain.ErrNoSnapshot.
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot: file %s: %w", s.path, domain.ErrNoSnapshot)
		}
		return nil, fmt.Errorf("snapshot: file: read: %w", err)
	}
	return data, nil
}

var _ domain.SnapshotStore = (*FileStore)(nil)
