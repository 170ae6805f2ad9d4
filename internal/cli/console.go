package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ishaan812/treeqa/internal/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console to ask questions about a code tree",
	Long: `Opens a full-screen terminal UI for asking repeated questions about an
embedded summary tree. Each answer is shown with the model's context and
answer relevance feedback.

Keys:
  enter        ask the typed question
  ctrl+t       include the retrieved context in the next answers
  pgup/pgdn    scroll the transcript
  esc/ctrl+c   quit

Examples:
  treeqa console -i index.msgpack
  treeqa console --provider openai -k 8`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	addQAFlags(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) error {
	if !isTerminal() {
		return fmt.Errorf("console needs a terminal; use 'treeqa ask' instead")
	}

	session, err := openQASession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	name := session.root.Info().Path
	if name == "" || name == "." {
		name = filepath.Base(askInput)
	}
	return tui.RunConsole(session.Ask, name)
}
