package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/index"
	"github.com/ishaan812/treeqa/internal/indexer"
)

var (
	showInput     string
	showDepth     int
	showSummaries bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary tree",
	Long: `Print the folders and files of a summary tree with their summaries.

Examples:
  treeqa show -i index.json
  treeqa show -i index.msgpack --depth 2 --summaries=false`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showInput, "input", "i", "index.json", "Summary tree to print")
	showCmd.Flags().IntVar(&showDepth, "depth", 0, "Maximum depth to print (0 for all)")
	showCmd.Flags().BoolVar(&showSummaries, "summaries", true, "Print summaries under each node")
}

func runShow(cmd *cobra.Command, args []string) error {
	root, err := loadIndex(showInput)
	if err != nil {
		return err
	}

	stats, err := index.Count(root)
	if err != nil {
		return err
	}

	fmt.Println()
	titleColor.Printf("  %s\n", root.Info().Path)
	dimColor.Printf("  %d folders, %d files, %d summarized, %d embedded\n\n",
		stats.Folders, stats.Files, stats.Summarized, stats.Embedded)

	if stack, err := indexer.TechStack(root); err == nil && len(stack) > 0 {
		parts := make([]string, 0, len(stack))
		for _, e := range stack {
			parts = append(parts, fmt.Sprintf("%s (%d)", e.Name, e.Count))
		}
		dimColor.Printf("  Stack: %s\n\n", strings.Join(parts, ", "))
	}

	width := max(terminalWidth()-8, 40)
	printNode(root, "", "  ", 0, width)
	fmt.Println()
	return nil
}

func printNode(n index.Node, name, indent string, depth, width int) {
	b := n.Info()
	if depth > 0 {
		label := name
		if index.KindOf(n) == index.KindFolder {
			label += "/"
			infoColor.Printf("%s%s", indent, label)
		} else {
			fmt.Printf("%s%s", indent, label)
		}
		if b.Embedding != nil {
			dimColor.Print(" *")
		}
		fmt.Println()
		if showSummaries {
			printSummary(b.Summary, indent+"  ", width)
		}
	} else if showSummaries {
		printSummary(b.Summary, indent, width)
	}

	folder, ok := n.(*index.FolderNode)
	if !ok || (showDepth > 0 && depth >= showDepth) {
		return
	}
	childIndent := indent
	if depth > 0 {
		childIndent += "  "
	}
	for _, c := range folder.Children {
		if c.Node == nil {
			dimColor.Printf("%s%s (skipped)\n", childIndent, c.Name)
			continue
		}
		printNode(c.Node, c.Name, childIndent, depth+1, width)
	}
}

func printSummary(summary, indent string, width int) {
	if summary == "" {
		dimColor.Printf("%s(no summary)\n", indent)
		return
	}
	line := strings.Join(strings.Fields(summary), " ")
	dimColor.Printf("%s%s\n", indent, truncate(line, width-len(indent)))
}
