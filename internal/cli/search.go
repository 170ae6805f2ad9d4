package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/chat"
	"github.com/ishaan812/treeqa/internal/db"
	"github.com/ishaan812/treeqa/internal/embedding"
	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/retrieval"
)

var (
	searchInput    string
	searchLimit    int
	searchFolders  bool
	searchFiles    bool
	searchDuckDB   string
	searchSnapshot string
	searchRoot     string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the summaries most similar to a query",
	Long: `Rank the summaries of an embedded tree by cosine similarity to a query
and print the best matches. No completion model is called.

With --duckdb the ranking runs inside a DuckDB database filled by
'treeqa db push' instead of over a snapshot file.

Examples:
  treeqa search "retry logic"
  treeqa search -i index.msgpack -k 5 --folders=false "token parsing"
  treeqa search --duckdb treeqa.duckdb "where are migrations applied"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchInput, "input", "i", "index.json", "Embedded summary tree")
	searchCmd.Flags().IntVarP(&searchLimit, "top-k", "k", 0, "Maximum results to show (default from config)")
	searchCmd.Flags().BoolVar(&searchFolders, "folders", true, "Include folder summaries")
	searchCmd.Flags().BoolVar(&searchFiles, "files", true, "Include file summaries")
	searchCmd.Flags().StringVar(&searchDuckDB, "duckdb", "", "Search a DuckDB database instead of a snapshot file")
	searchCmd.Flags().StringVar(&searchSnapshot, "snapshot", "", "DuckDB snapshot id (default: latest)")
	searchCmd.Flags().StringVar(&searchRoot, "root", "", "Only consider DuckDB snapshots of this root path")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	k := cfg.Retrieval.TopK
	if cmd.Flags().Changed("top-k") {
		k = searchLimit
	}
	kinds := embedding.CollectOptions{Folders: cfg.Retrieval.Folders, Files: cfg.Retrieval.Files}
	if cmd.Flags().Changed("folders") {
		kinds.Folders = searchFolders
	}
	if cmd.Flags().Changed("files") {
		kinds.Files = searchFiles
	}

	ix, err := newEmbeddingIndexer(cfg)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	var results []retrieval.Result
	if searchDuckDB != "" {
		results, err = searchDatabase(ctx, ix, query, kinds, k)
	} else {
		results, err = searchFile(ctx, ix, query, kinds, k)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  Search Results for: %s\n", query)
	dimColor.Println("  " + strings.Repeat("─", 50))
	if len(results) == 0 {
		dimColor.Println("  No embedded summaries matched. Run 'treeqa embed' first.")
		fmt.Println()
		return nil
	}

	width := terminalWidth() - 6
	for i, r := range results {
		fmt.Println()
		warnColor.Printf("  %d. %s", i+1, r.Path)
		dimColor.Printf("  (%.3f)\n", r.Score)
		infoColor.Printf("     %s\n", truncate(strings.Join(strings.Fields(r.Text), " "), max(width, 40)))
	}
	fmt.Println()
	return nil
}

func searchFile(ctx context.Context, ix *embedding.Indexer, query string, kinds embedding.CollectOptions, k int) ([]retrieval.Result, error) {
	root, err := loadIndex(searchInput)
	if err != nil {
		return nil, err
	}
	pipeline := chat.NewPipeline(nil, ix,
		chat.WithTopK(k),
		chat.WithKinds(kinds),
		chat.WithLogger(logger.Named("chat")),
	)
	_, results, err := pipeline.Retrieve(ctx, query, root)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

func searchDatabase(ctx context.Context, ix *embedding.Indexer, query string, kinds embedding.CollectOptions, k int) ([]retrieval.Result, error) {
	q, err := chat.CleanQuestion(query)
	if err != nil {
		return nil, err
	}

	conn, err := db.GetDBForPath(searchDuckDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	snapshotID := searchSnapshot
	if snapshotID == "" {
		snap, err := db.LatestSnapshot(ctx, conn, searchRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to find snapshot: %w", err)
		}
		snapshotID = snap.ID
		VerboseLog("Searching snapshot %s of %s", snap.ID, snap.RootPath)
	}

	vec, err := ix.EmbedText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var filter []index.Kind
	if kinds.Folders {
		filter = append(filter, index.KindFolder)
	}
	if kinds.Files {
		filter = append(filter, index.KindFile)
	}

	rows, err := db.SemanticSearch(ctx, conn, snapshotID, vec, filter, k)
	if err != nil {
		return nil, err
	}
	results := make([]retrieval.Result, len(rows))
	for i, r := range rows {
		results[i] = retrieval.Result{Path: r.Path, Text: r.Summary, Score: r.Similarity}
	}
	return results, nil
}
