package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/config"
	"github.com/ishaan812/treeqa/internal/embedding"
	"github.com/ishaan812/treeqa/internal/index"
)

var (
	embedInput  string
	embedOutput string
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed the summaries of a crawled tree",
	Long: `Compute an embedding for every summarized node of a tree written by
'treeqa crawl'. Nodes that already carry an embedding are skipped.

Examples:
  treeqa embed -i index.json                  # Embed in place
  treeqa embed -i index.json -o index.msgpack # Write a binary snapshot`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringVarP(&embedInput, "input", "i", "index.json", "Summary tree to embed")
	embedCmd.Flags().StringVarP(&embedOutput, "output", "o", "", "Where to write the embedded tree (default: overwrite input)")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := loadIndex(embedInput)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  Embedding %s\n", embedInput)
	dimColor.Printf("  Model: %s/%s\n\n", cfg.EmbeddingProvider(), cfg.EmbeddingModel())

	if err := embedWithProgress(ctx, cfg, root); err != nil {
		return err
	}

	out := embedOutput
	if out == "" {
		out = embedInput
	}
	if err := index.Save(out, root); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	infoColor.Printf("  Wrote %s\n\n", out)
	return nil
}

func embedWithProgress(ctx context.Context, cfg *config.Config, root index.Node) error {
	s := newProgress(" Embedding summaries...")
	ix, err := newEmbeddingIndexer(cfg, embedding.WithProgress(func(done, total int) {
		s.Update(fmt.Sprintf(" Embedding summaries... %d/%d", done, total))
	}))
	if err != nil {
		return err
	}

	s.Start()
	stats, err := ix.EmbedTree(ctx, root)
	s.Stop()
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	successColor.Printf("  Embedded %d nodes", stats.Embedded)
	dimColor.Printf(" (%d already embedded)\n", stats.Skipped)
	if stats.Failed > 0 {
		warnColor.Printf("  %d nodes could not be embedded\n", stats.Failed)
		for i, f := range stats.Failures {
			if i == 10 && !verbose {
				dimColor.Printf("    ... and %d more\n", len(stats.Failures)-i)
				break
			}
			dimColor.Printf("    %s: %s\n", f.Path, truncate(f.Err.Error(), 100))
		}
	}
	return nil
}
