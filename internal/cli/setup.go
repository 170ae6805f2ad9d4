package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ishaan812/treeqa/internal/cache"
	"github.com/ishaan812/treeqa/internal/config"
	"github.com/ishaan812/treeqa/internal/constants"
	"github.com/ishaan812/treeqa/internal/embedding"
	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/indexer"
	"github.com/ishaan812/treeqa/internal/llm"
)

var (
	titleColor   = color.New(color.FgHiCyan, color.Bold)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow)
	dimColor     = color.New(color.FgHiBlack)
	infoColor    = color.New(color.FgHiWhite)
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	VerboseLog("Loaded config from %s (provider %s)", config.GetConfigPath(), cfg.Provider)
	return cfg, nil
}

// providerConfig builds the llm.Config for provider with credentials from cfg.
func providerConfig(cfg *config.Config, provider, model, baseURL string) llm.Config {
	opts := []llm.Option{llm.WithTimeout(cfg.RequestTimeout)}
	if model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if baseURL != "" {
		opts = append(opts, llm.WithBaseURL(baseURL))
	}

	p := constants.Provider(provider)
	switch p {
	case constants.ProviderBedrock:
		secret := cfg.AWSSecretAccessKey
		if secret == "" {
			secret = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		opts = append(opts, llm.WithAWSCredentials(cfg.GetAPIKey(provider), secret, cfg.AWSRegion))
	case constants.ProviderOllama:
	default:
		opts = append(opts, llm.WithAPIKey(cfg.GetAPIKey(provider)))
	}
	return llm.NewConfig(p, opts...)
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("no provider configured; run 'treeqa configure' first")
	}
	return llm.NewClient(providerConfig(cfg, cfg.Provider, cfg.LLMModel(), cfg.BaseURL))
}

func createEmbedder(cfg *config.Config) (llm.EmbeddingClient, error) {
	provider := cfg.EmbeddingProvider()
	baseURL := cfg.Embedding.BaseURL
	if baseURL == "" && provider == cfg.Provider {
		baseURL = cfg.BaseURL
	}
	return llm.NewEmbedder(providerConfig(cfg, provider, cfg.EmbeddingModel(), baseURL))
}

func openCache(cfg *config.Config) (cache.Store, error) {
	path := cfg.CachePath()
	if cfg.Cache.Backend != cache.BackendMemory {
		if err := os.MkdirAll(config.GetTreeqaDir(), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", config.GetTreeqaDir(), err)
		}
	}
	store, err := cache.Open(cfg.Cache.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	VerboseLog("Using %s cache at %s", cfg.Cache.Backend, path)
	return store, nil
}

func budgetFor(cfg *config.Config) llm.Budget {
	window := cfg.ContextWindow
	if window <= 0 {
		window = constants.ContextWindow(cfg.LLMModel())
	}
	if window <= 0 {
		window = constants.DefaultContextWindow
	}
	return llm.Budget{ContextWindow: window, MaxOutputTokens: cfg.MaxOutputTokens}
}

// newChunker assembles the cached, budgeted model used by crawl and ask.
// The caller closes the returned store.
func newChunker(cfg *config.Config, concurrency int) (*indexer.Chunker, cache.Store, error) {
	client, err := createLLMClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	budget := budgetFor(cfg)
	if err := budget.Validate(); err != nil {
		return nil, nil, err
	}

	oracle, err := llm.NewOracle(cfg.Tokenizer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tokenizer %q: %w", cfg.Tokenizer, err)
	}

	store, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}

	cached := llm.NewCachedClient(client, store, llm.WithCacheLogger(logger.Named("cache")))
	chunker := indexer.NewChunker(cached, oracle, budget,
		indexer.WithConcurrency(concurrency),
		indexer.WithCallTimeout(cfg.RequestTimeout),
		indexer.WithChunkerLogger(logger.Named("chunker")),
	)
	logger.Debug("model ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.LLMModel()),
		zap.Int("context_window", budget.ContextWindow),
		zap.Int("max_output_tokens", budget.MaxOutputTokens),
	)
	return chunker, store, nil
}

func newEmbeddingIndexer(cfg *config.Config, opts ...embedding.Option) (*embedding.Indexer, error) {
	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	VerboseLog("Embedding with %s/%s", cfg.EmbeddingProvider(), cfg.EmbeddingModel())
	opts = append([]embedding.Option{embedding.WithLogger(logger.Named("embedding"))}, opts...)
	return embedding.NewIndexer(embedder, opts...), nil
}

func loadIndex(path string) (index.Node, error) {
	root, err := index.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", path, err)
	}
	return root, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// progress is a spinner that only animates on a terminal.
type progress struct {
	s *spinner.Spinner
}

func newProgress(suffix string) *progress {
	if !isTerminal() || verbose {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = suffix
	s.Color("cyan")
	return &progress{s: s}
}

func (p *progress) Start() {
	if p.s != nil {
		p.s.Start()
	}
}

func (p *progress) Update(suffix string) {
	if p.s != nil {
		p.s.Lock()
		p.s.Suffix = suffix
		p.s.Unlock()
	}
}

func (p *progress) Stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
