package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileStore keeps the whole cache in one JSON object:
//
//	{"<prompt>": ["<response>", "YYYY-MM-DD HH:MM:SS"], ...}
//
// The file is re-read on every Get and rewritten whole on every Put, so
// several processes can share it. Concurrent writers from different
// processes race; the last writer wins.
type FileStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(ctx context.Context, prompt string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockShared(ctx); err != nil {
		return Entry{}, false, err
	}
	defer s.lock.Unlock()

	data, err := s.read()
	if err != nil {
		return Entry{}, false, err
	}
	rec, ok := data[prompt]
	if !ok || len(rec) == 0 {
		return Entry{}, false, nil
	}
	e := Entry{Response: rec[0]}
	if len(rec) > 1 {
		if t, err := time.ParseInLocation(TimeLayout, rec[1], time.Local); err == nil {
			e.CreatedAt = t
		}
	}
	return e, true, nil
}

func (s *FileStore) Put(ctx context.Context, prompt string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockExclusive(ctx); err != nil {
		return err
	}
	defer s.lock.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	data[prompt] = []string{e.Response, e.CreatedAt.Format(TimeLayout)}
	return s.write(data)
}

func (s *FileStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockShared(ctx); err != nil {
		return 0, err
	}
	defer s.lock.Unlock()

	data, err := s.read()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockExclusive(ctx); err != nil {
		return err
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

const lockRetry = 50 * time.Millisecond

func (s *FileStore) lockShared(ctx context.Context) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if _, err := s.lock.TryRLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("failed to lock cache file: %w", err)
	}
	return nil
}

func (s *FileStore) lockExclusive(ctx context.Context) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("failed to lock cache file: %w", err)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return nil
}

// read loads the cache file. A missing or empty file is an empty cache.
func (s *FileStore) read() (map[string][]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	data := map[string][]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse cache file %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) write(data map[string][]string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	raw := buf.Bytes()
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
