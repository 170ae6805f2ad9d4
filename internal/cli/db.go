package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/config"
	"github.com/ishaan812/treeqa/internal/db"
	"github.com/ishaan812/treeqa/internal/git"
)

var (
	dbPath     string
	dbInput    string
	dbRootPath string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Store summary trees in DuckDB",
	Long: `Push embedded summary trees into a DuckDB database so they can be
searched with 'treeqa search --duckdb'. Every push creates a new snapshot.`,
}

var dbPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Store a summary tree as a new snapshot",
	Long: `Store every node of a summary tree, with its summary and embedding,
as a new DuckDB snapshot.

Examples:
  treeqa db push -i index.msgpack
  treeqa db push -i index.msgpack --duckdb ./treeqa.duckdb --root ~/src/app`,
	Args: cobra.NoArgs,
	RunE: runDBPush,
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  runDBList,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbPushCmd, dbListCmd)

	dbCmd.PersistentFlags().StringVar(&dbPath, "duckdb", "", "DuckDB database (default ~/.treeqa/treeqa.duckdb)")
	dbPushCmd.Flags().StringVarP(&dbInput, "input", "i", "index.json", "Summary tree to store")
	dbPushCmd.Flags().StringVar(&dbRootPath, "root", "", "Directory the tree was crawled from (default: the tree's root path)")
}

func duckDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return filepath.Join(config.GetTreeqaDir(), "treeqa.duckdb")
}

func runDBPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, err := loadIndex(dbInput)
	if err != nil {
		return err
	}

	rootPath := dbRootPath
	if rootPath == "" {
		rootPath = root.Info().Path
	}
	if abs, err := filepath.Abs(rootPath); err == nil {
		rootPath = abs
	}

	var headHash string
	if repo, err := git.OpenRepo(rootPath); err == nil {
		headHash, _ = repo.HeadHash()
	}

	conn, err := db.GetDBForPath(duckDBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	s := newProgress(" Storing snapshot...")
	s.Start()
	snap, err := db.SaveTree(ctx, conn, rootPath, headHash, root)
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Println()
	successColor.Printf("  Stored %d nodes as snapshot %s\n", snap.NodeCount, snap.ID)
	dimColor.Printf("  Root: %s\n", snap.RootPath)
	if snap.HeadHash != "" {
		dimColor.Printf("  HEAD: %s\n", truncate(snap.HeadHash, 12))
	}
	dimColor.Printf("  Database: %s\n\n", duckDBPath())
	return nil
}

func runDBList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conn, err := db.GetDBForPath(duckDBPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	snaps, err := db.ListSnapshots(ctx, conn)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Println("  Snapshots")
	if len(snaps) == 0 {
		dimColor.Println("  None yet. Run 'treeqa db push' first.")
		fmt.Println()
		return nil
	}
	for _, s := range snaps {
		fmt.Println()
		infoColor.Printf("  %s\n", s.ID)
		dimColor.Printf("    %s  %d nodes  %s", s.RootPath, s.NodeCount, s.CreatedAt.Format("2006-01-02 15:04"))
		if s.HeadHash != "" {
			dimColor.Printf("  @%s", truncate(s.HeadHash, 12))
		}
		fmt.Println()
	}
	fmt.Println()
	return nil
}
