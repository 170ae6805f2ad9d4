package indexer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/prompts"
)

// FolderOverflowPolicy chooses what happens when a folder listing does not
// fit the input budget.
type FolderOverflowPolicy string

const (
	// OverflowSkip leaves the folder unsummarized and reports ErrContextOverflow.
	OverflowSkip FolderOverflowPolicy = "skip"
	// OverflowSplit summarizes each half of the listing and merges the results.
	OverflowSplit FolderOverflowPolicy = "split"
)

// ParseFolderOverflowPolicy accepts "skip", "split" or "" (skip).
func ParseFolderOverflowPolicy(s string) (FolderOverflowPolicy, error) {
	switch FolderOverflowPolicy(s) {
	case "", OverflowSkip:
		return OverflowSkip, nil
	case OverflowSplit:
		return OverflowSplit, nil
	default:
		return "", fmt.Errorf("unknown folder overflow policy %q (want skip or split)", s)
	}
}

// Summarizer generates summaries for code files and folders.
type Summarizer struct {
	chunker  *Chunker
	overflow FolderOverflowPolicy
	logger   *zap.Logger
}

// NewSummarizer creates a new summarizer.
func NewSummarizer(chunker *Chunker, overflow FolderOverflowPolicy, logger *zap.Logger) *Summarizer {
	if overflow == "" {
		overflow = OverflowSkip
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{chunker: chunker, overflow: overflow, logger: logger}
}

// SummarizeFile summarizes one source file, splitting it as needed.
func (s *Summarizer) SummarizeFile(ctx context.Context, path, language, contents string) (string, error) {
	name := filepath.Base(path)
	return s.chunker.Summarize(ctx, contents, func(c string) string {
		return prompts.BuildFileSummaryPrompt(name, language, c)
	})
}

// SummarizeFolder summarizes a folder from its children's summaries. It
// returns "" without calling the model when no child has a summary.
func (s *Summarizer) SummarizeFolder(ctx context.Context, path string, children []index.Child) (string, error) {
	entries := make([]prompts.FolderEntry, len(children))
	for i, c := range children {
		entries[i] = prompts.FolderEntry{Name: c.Name}
		if c.Node != nil {
			entries[i].Summary = c.Node.Info().Summary
		}
	}
	return s.summarizeEntries(ctx, path, entries, 0)
}

func (s *Summarizer) summarizeEntries(ctx context.Context, path string, entries []prompts.FolderEntry, depth int) (string, error) {
	if !anySummary(entries) {
		return "", nil
	}

	prompt := prompts.BuildFolderSummaryPrompt(path, entries)
	if s.chunker.Fits(prompt) {
		return s.chunker.Complete(ctx, prompt)
	}

	if s.overflow != OverflowSplit || len(entries) < 2 || depth >= maxSplitDepth {
		return "", fmt.Errorf("%w: listing of %d entries for %s", llm.ErrContextOverflow, len(entries), path)
	}

	s.logger.Debug("splitting folder listing", zap.String("path", path), zap.Int("entries", len(entries)))
	mid := len(entries) / 2
	first, err := s.summarizeEntries(ctx, path, entries[:mid], depth+1)
	if err != nil {
		return "", err
	}
	second, err := s.summarizeEntries(ctx, path, entries[mid:], depth+1)
	if err != nil {
		return "", err
	}
	switch {
	case first == "":
		return second, nil
	case second == "":
		return first, nil
	}
	return s.chunker.Merge(ctx, first, second)
}

func anySummary(entries []prompts.FolderEntry) bool {
	for _, e := range entries {
		if e.Summary != "" {
			return true
		}
	}
	return false
}
