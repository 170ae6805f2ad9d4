package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ishaan812/treeqa/internal/embedding"
	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/retrieval"
)

// ErrEmptyQuestion is returned for a question that is blank after trimming.
var ErrEmptyQuestion = errors.New("question is empty")

// CleanQuestion trims q and makes sure it ends with a question mark.
func CleanQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	return q, nil
}

// Model checks prompt size and issues single model calls.
// *indexer.Chunker satisfies it.
type Model interface {
	Fits(prompt string) bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// TextEmbedder embeds a question. *embedding.Indexer satisfies it.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// Answer is the outcome of one question. Every field is populated.
type Answer struct {
	Question        string
	Answer          string
	ContextFeedback string
	AnswerFeedback  string
	Context         []retrieval.Result
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

func WithKinds(kinds embedding.CollectOptions) Option {
	return func(p *Pipeline) { p.kinds = kinds }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline answers questions about a summary tree.
type Pipeline struct {
	model    Model
	embedder TextEmbedder
	topK     int
	kinds    embedding.CollectOptions
	logger   *zap.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(model Model, embedder TextEmbedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:    model,
		embedder: embedder,
		topK:     retrieval.DefaultK,
		kinds:    embedding.AllKinds,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Retrieve cleans the question and returns the summaries most similar to it.
func (p *Pipeline) Retrieve(ctx context.Context, question string, root index.Node) (string, []retrieval.Result, error) {
	q, err := CleanQuestion(question)
	if err != nil {
		return "", nil, err
	}

	vec, err := p.embedder.EmbedText(ctx, q)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed question: %w", err)
	}

	candidates, err := embedding.Collect(root, p.kinds)
	if err != nil {
		return "", nil, fmt.Errorf("failed to collect summaries: %w", err)
	}

	results := retrieval.TopK(vec, candidates, p.topK)
	p.logger.Debug("retrieved context",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(results)))
	return q, results, nil
}

// Answer retrieves context for the question, asks the model to answer it,
// then asks the model to rate the relevance of the context and of the
// answer. Any failure aborts the question.
func (p *Pipeline) Answer(ctx context.Context, question string, root index.Node) (*Answer, error) {
	q, results, err := p.Retrieve(ctx, question, root)
	if err != nil {
		return nil, err
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Text
	}

	prompt := BuildAnswerPrompt(q, contexts)
	if !p.model.Fits(prompt) {
		return nil, fmt.Errorf("%w: answer prompt for %d summaries", llm.ErrContextOverflow, len(contexts))
	}

	p.logger.Debug("generating answer")
	answer, err := p.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	p.logger.Debug("generating context feedback")
	contextFeedback, err := p.model.Complete(ctx, BuildContextFeedbackPrompt(q, contexts))
	if err != nil {
		return nil, fmt.Errorf("failed to generate context feedback: %w", err)
	}

	p.logger.Debug("generating answer feedback")
	answerFeedback, err := p.model.Complete(ctx, BuildAnswerFeedbackPrompt(q, answer))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer feedback: %w", err)
	}

	return &Answer{
		Question:        q,
		Answer:          answer,
		ContextFeedback: contextFeedback,
		AnswerFeedback:  answerFeedback,
		Context:         results,
	}, nil
}
