package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps each key in its own JSON file below a directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file store in dir. The directory is created if it
// doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// fileEntry wraps stored data with the key and save time so the files are
// self-describing.
type fileEntry struct {
	Key     string          `json:"key"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// Get reads key. Unreadable entries are reported as errors, not misses, so a
// corrupt file is never silently replaced by an empty portfolio.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read store file: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Not an envelope: hand the bytes up for the record decoder to judge.
		return raw, true, nil
	}
	return []byte(entry.Data), true, nil
}

// Set writes key atomically through a temporary file.
func (s *FileStore) Set(ctx context.Context, key string, data []byte) error {
	payload := json.RawMessage(data)
	if !json.Valid(data) {
		quoted, err := json.Marshal(string(data))
		if err != nil {
			return err
		}
		payload = quoted
	}
	raw, err := json.MarshalIndent(fileEntry{Key: key, SavedAt: time.Now().UTC(), Data: payload}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for file store.
func (s *FileStore) Close() error {
	return nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, Hash([]byte(key))[:16]+".json")
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
