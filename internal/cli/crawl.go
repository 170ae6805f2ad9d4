package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ishaan812/treeqa/internal/git"
	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/indexer"
	"github.com/ishaan812/treeqa/internal/llm"
)

var (
	crawlOutput      string
	crawlInclude     []string
	crawlExclude     []string
	crawlGitignore   bool
	crawlWorkers     int
	crawlMaxFailures int
	crawlEmbed       bool
	crawlVendored    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [path]",
	Short: "Summarize every file and folder under a directory",
	Long: `Walk a directory bottom-up, summarize each recognized source file and
then each folder from its children's summaries, and write the summary tree.

The output format follows the file extension: .json or .msgpack.
Model responses are cached, so re-running over unchanged files is cheap.

Examples:
  treeqa crawl                          # Crawl the current directory
  treeqa crawl ./src -o src.json        # Crawl a subdirectory
  treeqa crawl -P '*.go' -I '*_test.go' # Only Go files, no tests
  treeqa crawl --workers 4              # Summarize siblings in parallel
  treeqa crawl --embed -o index.msgpack # Crawl and embed in one go`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "index.json", "Where to write the summary tree")
	crawlCmd.Flags().StringArrayVarP(&crawlInclude, "include", "P", nil, "Only summarize files matching this pattern (repeatable)")
	crawlCmd.Flags().StringArrayVarP(&crawlExclude, "exclude", "I", nil, "Skip paths matching this pattern (repeatable)")
	crawlCmd.Flags().BoolVar(&crawlGitignore, "gitignore", true, "Skip paths ignored by git")
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 0, "Parallel workers (default from config)")
	crawlCmd.Flags().IntVar(&crawlMaxFailures, "show-failures", 20, "Maximum failures to list")
	crawlCmd.Flags().BoolVar(&crawlEmbed, "embed", false, "Embed summaries after crawling")
	crawlCmd.Flags().BoolVar(&crawlVendored, "vendored", false, "Also crawl vendored and tool cache directories (node_modules, .venv, ...)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot crawl %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	workers := cfg.Crawl.Workers
	if cmd.Flags().Changed("workers") {
		workers = crawlWorkers
	}
	gitignore := cfg.Crawl.Gitignore
	if cmd.Flags().Changed("gitignore") {
		gitignore = crawlGitignore
	}

	include, err := indexer.CompilePatterns(append(append([]string{}, cfg.Crawl.Include...), crawlInclude...))
	if err != nil {
		return fmt.Errorf("invalid include pattern: %w", err)
	}
	prune := append(append([]string{}, cfg.Crawl.Exclude...), crawlExclude...)
	if !crawlVendored {
		prune = append(prune, indexer.VendoredDirs...)
	}
	exclude, err := indexer.CompilePatterns(prune)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern: %w", err)
	}
	overflow, err := indexer.ParseFolderOverflowPolicy(cfg.Crawl.FolderOverflow)
	if err != nil {
		return err
	}

	chunker, store, err := newChunker(cfg, workers)
	if err != nil {
		return err
	}
	defer store.Close()

	var filter indexer.PathFilter = indexer.NoFilter{}
	var headHash string
	if gitignore {
		if repo, err := git.OpenRepo(root); err == nil {
			headHash, _ = repo.HeadHash()
			f, err := repo.IgnoreFilter()
			if err != nil {
				warnColor.Printf("  Ignoring .gitignore: %v\n", err)
			} else {
				filter = f
				VerboseLog("Using .gitignore rules from %s", repo.Path())
			}
		} else if !git.IsNotRepo(err) {
			VerboseLog("Could not open git repository: %v", err)
		}
	}

	fmt.Println()
	titleColor.Printf("  Crawling %s\n", root)
	dimColor.Printf("  Model: %s/%s  Workers: %d\n\n", cfg.Provider, cfg.LLMModel(), max(workers, 1))

	var seen atomic.Int64
	s := newProgress(" Summarizing...")
	crawler := indexer.NewCrawler(
		indexer.NewSummarizer(chunker, overflow, logger.Named("summarizer")),
		indexer.WithInclude(include),
		indexer.WithExclude(exclude),
		indexer.WithPathFilter(filter),
		indexer.WithWorkers(workers),
		indexer.WithMaxDepth(cfg.Crawl.MaxDepth),
		indexer.WithMaxFileSize(cfg.Crawl.MaxFileSize),
		indexer.WithLogger(logger.Named("crawler")),
		indexer.WithProgress(func(path string) {
			n := seen.Add(1)
			s.Update(fmt.Sprintf(" [%d] %s", n, truncate(path, 60)))
		}),
	)

	start := time.Now()
	s.Start()
	result, err := crawler.Crawl(ctx, root)
	s.Stop()
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if result.Root == nil {
		return fmt.Errorf("nothing to summarize under %s", root)
	}

	printCrawlFailures(result.Failures)

	if crawlEmbed {
		if err := embedWithProgress(ctx, cfg, result.Root); err != nil {
			return err
		}
	}

	if err := index.Save(crawlOutput, result.Root); err != nil {
		return fmt.Errorf("failed to write %s: %w", crawlOutput, err)
	}
	logger.Debug("crawl finished",
		zap.String("root", root),
		zap.String("head", headHash),
		zap.Duration("elapsed", time.Since(start)),
	)

	st := result.Stats
	successColor.Printf("  Summarized %d files and %d folders in %s\n", st.Files, st.Folders, time.Since(start).Round(time.Millisecond))
	if st.Pruned > 0 {
		dimColor.Printf("  Pruned %d paths\n", st.Pruned)
	}
	if st.Failed > 0 {
		warnColor.Printf("  %d failures\n", st.Failed)
	}
	abs, _ := filepath.Abs(crawlOutput)
	infoColor.Printf("  Wrote %s\n\n", abs)
	return nil
}

func printCrawlFailures(failures []indexer.Failure) {
	var shown int
	for _, f := range failures {
		// Unsupported content is routine and only logged.
		if errors.Is(f.Err, indexer.ErrUnsupportedContent) && !verbose {
			continue
		}
		if shown == 0 {
			warnColor.Println("  Failures:")
		}
		if shown == crawlMaxFailures {
			dimColor.Printf("    ... and more (use --verbose to see all)\n")
			break
		}
		shown++
		reason := f.Err.Error()
		if errors.Is(f.Err, llm.ErrContextOverflow) {
			reason = "prompt does not fit the context window"
		}
		dimColor.Printf("    %s [%s] %s\n", f.Path, f.Stage, truncate(reason, 100))
	}
	if shown > 0 {
		fmt.Println()
	}
}
