package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/prompts"
)

// maxSplitDepth bounds halving; 2^64 runes is far past any readable file.
const maxSplitDepth = 64

const defaultCallTimeout = 120 * time.Second

// Template renders the prompt for a piece of content.
type Template func(content string) string

// Chunker produces one summary for content of any length. Content whose
// prompt fits the input budget takes one model call. Longer content is
// halved by character count, each half summarized recursively, and the two
// partial summaries merged with one more call.
type Chunker struct {
	client      llm.Client
	oracle      llm.LengthOracle
	budget      llm.Budget
	sem         *semaphore.Weighted
	callTimeout time.Duration
	logger      *zap.Logger
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithConcurrency bounds in-flight model calls.
func WithConcurrency(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithCallTimeout(d time.Duration) ChunkerOption {
	return func(c *Chunker) { c.callTimeout = d }
}

func WithChunkerLogger(l *zap.Logger) ChunkerOption {
	return func(c *Chunker) { c.logger = l }
}

func NewChunker(client llm.Client, oracle llm.LengthOracle, budget llm.Budget, opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		client:      client,
		oracle:      oracle,
		budget:      budget,
		callTimeout: defaultCallTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fits reports whether prompt fits the input budget.
func (c *Chunker) Fits(prompt string) bool {
	return c.oracle.Fits(prompt, c.budget.Input())
}

// Summarize returns a summary of content rendered through tmpl.
func (c *Chunker) Summarize(ctx context.Context, content string, tmpl Template) (string, error) {
	return c.summarize(ctx, []rune(content), tmpl, 0)
}

func (c *Chunker) summarize(ctx context.Context, content []rune, tmpl Template, depth int) (string, error) {
	prompt := tmpl(string(content))
	if c.Fits(prompt) {
		return c.Complete(ctx, prompt)
	}
	if len(content) < 2 || depth >= maxSplitDepth {
		return "", fmt.Errorf("%w: %d characters cannot be split further", llm.ErrContextOverflow, len(content))
	}

	mid := len(content) / 2
	c.logger.Debug("splitting content", zap.Int("runes", len(content)), zap.Int("depth", depth))

	first, err := c.summarize(ctx, content[:mid], tmpl, depth+1)
	if err != nil {
		return "", err
	}
	second, err := c.summarize(ctx, content[mid:], tmpl, depth+1)
	if err != nil {
		return "", err
	}
	return c.Merge(ctx, first, second)
}

// Merge combines two partial summaries with one model call.
func (c *Chunker) Merge(ctx context.Context, first, second string) (string, error) {
	return c.Complete(ctx, prompts.BuildMergeSummariesPrompt(first, second))
}

// Complete issues a single model call under the concurrency bound.
func (c *Chunker) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer c.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.client.Complete(ctx, prompt, c.budget.MaxOutputTokens)
	if err != nil {
		if errors.Is(err, llm.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", llm.ErrGeneration, err)
	}
	if strings.TrimSpace(resp) == "" {
		return "", fmt.Errorf("%w: empty response", llm.ErrGeneration)
	}
	return resp, nil
}
