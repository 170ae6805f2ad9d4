// Package cache persists model responses keyed by the exact prompt text.
package cache

import (
	"context"
	"fmt"
	"time"
)

// TimeLayout is the timestamp format stored next to each response.
const TimeLayout = "2006-01-02 15:04:05"

// Entry is a cached response and the time it was produced.
type Entry struct {
	Response  string
	CreatedAt time.Time
}

// Store maps prompts to responses. Entries never expire.
type Store interface {
	Get(ctx context.Context, prompt string) (Entry, bool, error)
	Put(ctx context.Context, prompt string, e Entry) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}
