package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ishaan812/treeqa/internal/cache"
)

// CachedClient memoizes completions keyed by the exact prompt. Identical
// prompts issued concurrently share one backend call. Failed or empty
// completions are never stored.
type CachedClient struct {
	backend Client
	store   cache.Store
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group
}

// CachedOption configures a CachedClient.
type CachedOption func(*CachedClient)

func WithCacheLogger(l *zap.Logger) CachedOption {
	return func(c *CachedClient) { c.logger = l }
}

func WithClock(now func() time.Time) CachedOption {
	return func(c *CachedClient) { c.now = now }
}

func NewCachedClient(backend Client, store cache.Store, opts ...CachedOption) *CachedClient {
	c := &CachedClient{
		backend: backend,
		store:   store,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete returns the cached response for prompt, or asks the backend and
// stores the answer. maxTokens is not part of the key.
func (c *CachedClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if e, ok, err := c.store.Get(ctx, prompt); err != nil {
		c.logger.Warn("cache read failed", zap.Error(err))
	} else if ok {
		c.logger.Debug("cache hit", zap.Int("prompt_len", len(prompt)))
		return e.Response, nil
	}

	v, err, shared := c.group.Do(prompt, func() (any, error) {
		resp, err := c.backend.Complete(ctx, prompt, maxTokens)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		if strings.TrimSpace(resp) == "" {
			return "", fmt.Errorf("%w: empty response", ErrGeneration)
		}
		if err := c.store.Put(ctx, prompt, cache.Entry{Response: resp, CreatedAt: c.now()}); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}
	c.logger.Debug("cache miss", zap.Int("prompt_len", len(prompt)), zap.Bool("shared", shared))
	return v.(string), nil
}
