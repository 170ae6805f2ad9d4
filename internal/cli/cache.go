package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearForce bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the model response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many responses are cached",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response",
	Long: `Delete every cached model response. The next crawl calls the model
again for every file and folder.

Examples:
  treeqa cache clear           # Clear (with confirmation)
  treeqa cache clear --force   # Skip confirmation`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)

	cacheClearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip confirmation prompt")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	fmt.Println()
	titleColor.Println("  Response cache")
	dimColor.Printf("  Backend: %s\n", cfg.Cache.Backend)
	dimColor.Printf("  Path:    %s\n", cfg.CachePath())
	infoColor.Printf("  Entries: %d\n\n", n)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Len(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	fmt.Println()
	if n == 0 {
		dimColor.Println("  Cache is already empty.")
		fmt.Println()
		return nil
	}

	warnColor.Printf("  This will delete %d cached responses from %s\n\n", n, cfg.CachePath())
	if !clearForce {
		warnColor.Print("  Are you sure? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println()
			dimColor.Println("  Canceled.")
			fmt.Println()
			return nil
		}
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Println()
	successColor.Printf("  Cache cleared\n")
	fmt.Println()
	return nil
}
