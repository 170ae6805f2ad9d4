package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
)

// ErrUnsupportedContent marks a recognized file that cannot be read as text.
var ErrUnsupportedContent = errors.New("unsupported content")

// ErrTooDeep marks a directory nested deeper than the crawl allows.
var ErrTooDeep = errors.New("directory nesting exceeds max depth")

const (
	DefaultMaxDepth    = 64
	DefaultMaxFileSize = 512 * 1024
)

// Stage names the crawl step a failure happened in.
type Stage string

const (
	StageRead      Stage = "read"
	StageSummarize Stage = "summarize"
	StageWalk      Stage = "walk"
)

// Failure is a node-local error. The crawl continues past it.
type Failure struct {
	Path  string
	Stage Stage
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// CrawlStats counts what the crawl produced.
type CrawlStats struct {
	Files   int
	Folders int
	Pruned  int
	Failed  int
}

// Result is the outcome of a crawl. Root is nil when the root itself was
// filtered out.
type Result struct {
	Root     index.Node
	Failures []Failure
	Stats    CrawlStats
}

// CrawlOption configures a Crawler.
type CrawlOption func(*Crawler)

// WithInclude keeps only regular files matching one of ps.
func WithInclude(ps Patterns) CrawlOption {
	return func(c *Crawler) { c.include = ps }
}

// WithExclude prunes any path matching one of ps.
func WithExclude(ps Patterns) CrawlOption {
	return func(c *Crawler) { c.exclude = ps }
}

func WithPathFilter(f PathFilter) CrawlOption {
	return func(c *Crawler) {
		if f != nil {
			c.filter = f
		}
	}
}

// WithWorkers crawls sibling entries concurrently when n > 1.
func WithWorkers(n int) CrawlOption {
	return func(c *Crawler) { c.workers = n }
}

func WithMaxDepth(n int) CrawlOption {
	return func(c *Crawler) { c.maxDepth = n }
}

// WithMaxFileSize rejects larger files as unsupported; zero disables the check.
func WithMaxFileSize(n int64) CrawlOption {
	return func(c *Crawler) { c.maxFileSize = n }
}

func WithLogger(l *zap.Logger) CrawlOption {
	return func(c *Crawler) { c.logger = l }
}

// WithProgress registers a callback invoked after each node is finished.
// It may be called from several goroutines.
func WithProgress(fn func(path string)) CrawlOption {
	return func(c *Crawler) { c.progress = fn }
}

// Crawler walks a directory tree and builds a summary tree.
type Crawler struct {
	summarizer  *Summarizer
	include     Patterns
	exclude     Patterns
	filter      PathFilter
	workers     int
	maxDepth    int
	maxFileSize int64
	logger      *zap.Logger
	progress    func(string)
}

func NewCrawler(summarizer *Summarizer, opts ...CrawlOption) *Crawler {
	c := &Crawler{
		summarizer:  summarizer,
		filter:      NoFilter{},
		workers:     1,
		maxDepth:    DefaultMaxDepth,
		maxFileSize: DefaultMaxFileSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type crawlState struct {
	mu       sync.Mutex
	failures []Failure
	stats    CrawlStats
}

func (s *crawlState) fail(path string, stage Stage, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, Failure{Path: path, Stage: stage, Err: err})
	s.stats.Failed++
}

func (s *crawlState) count(fn func(*CrawlStats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// Crawl builds the summary tree rooted at root. Only a missing root or a
// cancelled context fail the crawl; everything else is recorded in
// Result.Failures.
func (c *Crawler) Crawl(ctx context.Context, root string) (*Result, error) {
	if _, err := os.Lstat(root); err != nil {
		return nil, fmt.Errorf("failed to stat crawl root: %w", err)
	}

	st := &crawlState{}
	node, err := c.crawl(ctx, root, 0, st)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(st.failures, func(i, j int) bool { return st.failures[i].Path < st.failures[j].Path })
	return &Result{Root: node, Failures: st.failures, Stats: st.stats}, nil
}

// crawl returns nil for anything pruned or unsupported. The error is
// reserved for context cancellation.
func (c *Crawler) crawl(ctx context.Context, path string, depth int, st *crawlState) (index.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		st.fail(path, StageRead, err)
		return nil, nil
	}

	// The root is always crawled, whatever its name.
	if depth > 0 && c.pruned(path) {
		st.count(func(s *CrawlStats) { s.Pruned++ })
		return nil, nil
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return nil, nil
	case mode.IsDir():
		return c.crawlDir(ctx, path, depth, st)
	case mode.IsRegular():
		if len(c.include) > 0 && !c.include.MatchAny(path) {
			st.count(func(s *CrawlStats) { s.Pruned++ })
			return nil, nil
		}
		return c.crawlFile(ctx, path, info.Size(), st)
	default:
		return nil, nil
	}
}

func (c *Crawler) pruned(path string) bool {
	if isGitDir(path) {
		return true
	}
	if c.filter.IsIgnored(path) {
		return true
	}
	return c.exclude.MatchAny(path)
}

func isGitDir(path string) bool {
	return baseName(path) == ".git"
}

func (c *Crawler) crawlFile(ctx context.Context, path string, size int64, st *crawlState) (index.Node, error) {
	lang, ok := Language(path)
	if !ok {
		return nil, nil
	}

	if c.maxFileSize > 0 && size > c.maxFileSize {
		c.unsupported(path, fmt.Sprintf("%d bytes exceeds limit of %d", size, c.maxFileSize), st)
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		st.fail(path, StageRead, err)
		return nil, nil
	}
	if !isText(data) {
		c.unsupported(path, "not UTF-8 text", st)
		return nil, nil
	}

	node := index.NewFile(path)
	summary, err := c.summarizer.SummarizeFile(ctx, path, lang, string(data))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("file summary failed", zap.String("path", path), zap.Error(err))
		st.fail(path, StageSummarize, err)
	} else {
		node.SetSummary(summary)
	}

	st.count(func(s *CrawlStats) { s.Files++ })
	c.report(path)
	return node, nil
}

func (c *Crawler) unsupported(path, reason string, st *crawlState) {
	c.logger.Debug("skipping unsupported file", zap.String("path", path), zap.String("reason", reason))
	st.fail(path, StageRead, fmt.Errorf("%w: %s", ErrUnsupportedContent, reason))
}

func (c *Crawler) crawlDir(ctx context.Context, path string, depth int, st *crawlState) (index.Node, error) {
	if depth > c.maxDepth {
		st.fail(path, StageWalk, fmt.Errorf("%w (%d)", ErrTooDeep, c.maxDepth))
		return nil, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		st.fail(path, StageRead, err)
		return nil, nil
	}

	children := make([]index.Child, len(entries))
	if c.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for i, e := range entries {
			i, name := i, e.Name()
			g.Go(func() error {
				n, err := c.crawl(gctx, joinPath(path, name), depth+1, st)
				children[i] = index.Child{Name: name, Node: n}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, e := range entries {
			n, err := c.crawl(ctx, joinPath(path, e.Name()), depth+1, st)
			if err != nil {
				return nil, err
			}
			children[i] = index.Child{Name: e.Name(), Node: n}
		}
	}

	folder := index.NewFolder(path, children)
	summary, err := c.summarizer.SummarizeFolder(ctx, path, folder.Children)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, llm.ErrContextOverflow) {
			c.logger.Info("folder listing too long, summary skipped", zap.String("path", path))
		} else {
			c.logger.Warn("folder summary failed", zap.String("path", path), zap.Error(err))
		}
		st.fail(path, StageSummarize, err)
	} else {
		folder.SetSummary(summary)
	}

	st.count(func(s *CrawlStats) { s.Folders++ })
	c.report(path)
	return folder, nil
}

func (c *Crawler) report(path string) {
	if c.progress != nil {
		c.progress(path)
	}
}

// joinPath appends name to dir the way the crawl root was spelled, so "."
// yields "./name".
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, string(os.PathSeparator)) || strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + string(os.PathSeparator) + name
}

func baseName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// isText reports whether data is UTF-8 without NUL bytes in its head.
func isText(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
