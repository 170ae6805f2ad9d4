package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/cache"
	"github.com/ishaan812/treeqa/internal/chat"
	"github.com/ishaan812/treeqa/internal/config"
	"github.com/ishaan812/treeqa/internal/embedding"
	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/tui"
)

var (
	askInput       string
	provider       string
	model          string
	baseURL        string
	askTopK        int
	askShowContext bool
	askRaw         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a summarized code tree",
	Long: `Answer a natural language question using the summaries most similar
to it as context. The model also rates how relevant the retrieved context
and its own answer are to the question.

The tree must have been embedded with 'treeqa embed' (or 'crawl --embed').

Examples:
  treeqa ask "Where is the HTTP server configured?"
  treeqa ask -i index.msgpack -k 5 "How are retries handled"
  treeqa ask --provider anthropic --context "What does the parser do?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	addQAFlags(askCmd)

	askCmd.Flags().BoolVar(&askShowContext, "context", false, "Show the retrieved context")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print markdown without rendering")
}

func addQAFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&askInput, "input", "i", "index.json", "Embedded summary tree")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (ollama, openai, anthropic, openrouter, gemini, bedrock)")
	cmd.Flags().StringVar(&model, "model", "", "Model to use")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of summaries to use as context (default from config)")
}

// qaSession holds what ask and console need to answer questions.
type qaSession struct {
	root     index.Node
	pipeline *chat.Pipeline
	store    cache.Store
}

func (s *qaSession) Close() error {
	return s.store.Close()
}

func (s *qaSession) Ask(ctx context.Context, question string) (*chat.Answer, error) {
	return s.pipeline.Answer(ctx, question, s.root)
}

func openQASession(cmd *cobra.Command) (*qaSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	applyModelOverrides(cfg)

	root, err := loadIndex(askInput)
	if err != nil {
		return nil, err
	}

	ix, err := newEmbeddingIndexer(cfg)
	if err != nil {
		return nil, err
	}
	chunker, store, err := newChunker(cfg, 1)
	if err != nil {
		return nil, err
	}

	k := cfg.Retrieval.TopK
	if cmd.Flags().Changed("top-k") {
		k = askTopK
	}
	pipeline := chat.NewPipeline(chunker, ix,
		chat.WithTopK(k),
		chat.WithKinds(embedding.CollectOptions{Folders: cfg.Retrieval.Folders, Files: cfg.Retrieval.Files}),
		chat.WithLogger(logger.Named("chat")),
	)
	return &qaSession{root: root, pipeline: pipeline, store: store}, nil
}

func applyModelOverrides(cfg *config.Config) {
	if provider != "" && provider != cfg.Provider {
		cfg.Provider = provider
		cfg.Model = ""
		cfg.BaseURL = ""
	}
	if model != "" {
		cfg.Model = model
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	question := strings.Join(args, " ")

	session, err := openQASession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	s := newProgress(" Thinking...")
	s.Start()
	answer, err := session.Ask(ctx, question)
	s.Stop()
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			return fmt.Errorf("please ask a question")
		case errors.Is(err, llm.ErrContextOverflow):
			return fmt.Errorf("%w\n\nTry a smaller --top-k or a model with a larger context window", err)
		}
		return fmt.Errorf("failed to answer question: %w", err)
	}

	md := tui.AnswerMarkdown(answer, askShowContext)
	if askRaw || !isTerminal() {
		fmt.Println(md)
		return nil
	}
	fmt.Print(tui.RenderMarkdown(md, terminalWidth()-4))
	return nil
}
