// Package embedding attaches vectors to the summaries of a tree and flattens
// the tree into a retrieval candidate pool.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
)

// DefaultBatchSize is the number of summaries sent per EmbedBatch call.
const DefaultBatchSize = 20

// Stats reports the outcome of an EmbedTree pass.
type Stats struct {
	Embedded int
	Skipped  int // already embedded
	Failed   int
	Failures []Failure
}

// Failure records a node whose summary could not be embedded.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Path, f.Err) }
func (f Failure) Unwrap() error { return f.Err }

type Option func(*Indexer)

func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithProgress is called after every batch with the number of nodes
// processed so far and the total.
func WithProgress(fn func(done, total int)) Option {
	return func(ix *Indexer) { ix.progress = fn }
}

// Indexer embeds node summaries with an EmbeddingClient.
type Indexer struct {
	embedder  llm.EmbeddingClient
	batchSize int
	logger    *zap.Logger
	progress  func(done, total int)
}

func NewIndexer(embedder llm.EmbeddingClient, opts ...Option) *Indexer {
	ix := &Indexer{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// EmbedText embeds a single text, typically a question.
func (ix *Indexer) EmbedText(ctx context.Context, text string) ([]float64, error) {
	v, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrEmbedding, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", llm.ErrEmbedding)
	}
	return widen(v), nil
}

// widen converts a provider vector to the precision the tree stores.
func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// EmbedTree embeds, in place, every node that has a summary and no
// embedding. Nodes are visited in pre-order. A node whose embedding fails
// keeps a nil embedding and is recorded in Stats.Failures; only context
// cancellation aborts the pass.
func (ix *Indexer) EmbedTree(ctx context.Context, root index.Node) (Stats, error) {
	var stats Stats
	var pending []*index.Base
	collect := func(b *index.Base) error {
		switch {
		case !b.HasSummary():
		case b.Embedding != nil:
			stats.Skipped++
		default:
			pending = append(pending, b)
		}
		return nil
	}
	err := index.Walk(root, index.Funcs{
		File:   func(n *index.FileNode) error { return collect(&n.Base) },
		Folder: func(n *index.FolderNode) error { return collect(&n.Base) },
	})
	if err != nil {
		return stats, err
	}

	for start := 0; start < len(pending); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := min(start+ix.batchSize, len(pending))
		if err := ix.embedBatch(ctx, pending[start:end], &stats); err != nil {
			return stats, err
		}
		if ix.progress != nil {
			ix.progress(end, len(pending))
		}
	}

	ix.logger.Debug("embedded tree",
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (ix *Indexer) embedBatch(ctx context.Context, batch []*index.Base, stats *Stats) error {
	texts := make([]string, len(batch))
	for i, b := range batch {
		texts[i] = b.Summary
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(batch) {
		for i, b := range batch {
			if len(vectors[i]) == 0 {
				ix.fail(stats, b, errors.New("empty vector"))
				continue
			}
			b.SetEmbedding(widen(vectors[i]))
			stats.Embedded++
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil {
		err = fmt.Errorf("got %d vectors for %d texts", len(vectors), len(batch))
	}
	ix.logger.Debug("batch embedding failed, falling back to single requests",
		zap.Int("size", len(batch)), zap.Error(err))

	for _, b := range batch {
		v, err := ix.embedder.Embed(ctx, b.Summary)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			ix.fail(stats, b, err)
			continue
		}
		if len(v) == 0 {
			ix.fail(stats, b, errors.New("empty vector"))
			continue
		}
		b.SetEmbedding(widen(v))
		stats.Embedded++
	}
	return nil
}

func (ix *Indexer) fail(stats *Stats, b *index.Base, err error) {
	stats.Failed++
	stats.Failures = append(stats.Failures, Failure{
		Path: b.Path,
		Err:  fmt.Errorf("%w: %w", llm.ErrEmbedding, err),
	})
	ix.logger.Warn("failed to embed summary", zap.String("path", b.Path), zap.Error(err))
}
