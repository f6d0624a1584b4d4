package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the cache blob in a single file on disk. Writes go through
// a temp file followed by a rename, so readers never observe a torn blob.
type FileStore struct {
	path      string
	writeLock sync.Mutex
}

// NewFileStore creates a FileStore writing to path. If path is empty the
// blob lives under the user cache directory.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = defaultPath()
	}
	return &FileStore{path: path}
}

func defaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "weatherbatch", DefaultKey)
}

// Name implements Store.
func (s *FileStore) Name() string {
	return "file"
}

// Path returns the filesystem path of the blob.
func (s *FileStore) Path() string {
	return s.path
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, s.path)
		}
		return nil, fmt.Errorf("read cache blob: %w", err)
	}
	return data, nil
}

// Exists implements Store.
func (s *FileStore) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat cache blob: %w", err)
	}
	return true, nil
}

// Write implements Store. The blob is replaced wholesale.
func (s *FileStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache blob: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write cache blob: %w", err)
	}
	return nil
}
