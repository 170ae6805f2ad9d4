package llm

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/cache"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
}

func TestCachedClient_HitSkipsBackend(t *testing.T) {
	ctx := context.Background()
	var calls int32
	backend := ClientFunc(func(_ context.Context, prompt string, _ int) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "summary of " + prompt, nil
	})
	c := NewCachedClient(backend, cache.NewMemoryStore(), WithClock(fixedClock))

	first, err := c.Complete(ctx, "p1", 10)
	require.NoError(t, err)
	second, err := c.Complete(ctx, "p1", 10)
	require.NoError(t, err)

	assert.Equal(t, "summary of p1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedClient_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	var calls int32
	backend := ClientFunc(func(context.Context, string, int) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "R", nil
	})

	_, err := NewCachedClient(backend, cache.NewFileStore(path), WithClock(fixedClock)).Complete(ctx, "P", 0)
	require.NoError(t, err)

	got, err := NewCachedClient(backend, cache.NewFileStore(path)).Complete(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, "R", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachedClient_FailuresNotCached(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	boom := errors.New("boom")

	responses := []struct {
		resp string
		err  error
	}{
		{"", boom},
		{"   ", nil},
		{"ok", nil},
	}
	var i int
	backend := ClientFunc(func(context.Context, string, int) (string, error) {
		r := responses[i]
		i++
		return r.resp, r.err
	})
	c := NewCachedClient(backend, store)

	_, err := c.Complete(ctx, "P", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, boom)

	_, err = c.Complete(ctx, "P", 0)
	assert.ErrorIs(t, err, ErrGeneration)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := c.Complete(ctx, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, i)
}

func TestCachedClient_CoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	backend := ClientFunc(func(context.Context, string, int) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "R", nil
	})
	c := NewCachedClient(backend, cache.NewMemoryStore())

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Complete(ctx, "same prompt", 0)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "R", r)
	}
	// Goroutines that arrive after the first call finished hit the store.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
