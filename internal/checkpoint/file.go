package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// FileStore implements Store using a plain-text file holding a single
// non-negative integer. Saves go through a temp file and rename so a
// crash mid-write cannot truncate the previous checkpoint.
type FileStore struct {
	path string

	mu   sync.Mutex
	last int64
}

// NewFileStore creates a FileStore at the given path. The parent
// directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	return &FileStore{path: path, last: -1}, nil
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load retrieves the saved index. A missing or unparsable file loads
// as 0.
func (s *FileStore) Load() (int64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	index, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || index < 0 {
		// Corrupt state resets progress, it does not abort.
		return 0, nil
	}

	return index, nil
}

// Save persists the index atomically. Saves that would move the
// checkpoint backwards within this run are dropped: workers finish
// out of order, and the checkpoint must stay a high-water mark.
func (s *FileStore) Save(index int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index <= s.last {
		return nil
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(index, 10)), 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}

	s.last = index
	return nil
}

// Clear removes the checkpoint file. A missing file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	s.last = -1
	return nil
}
