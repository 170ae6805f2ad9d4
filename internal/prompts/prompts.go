package prompts

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed file_summary.md
var fileSummaryPromptTemplate string

//go:embed folder_summary.md
var folderSummaryPromptTemplate string

//go:embed merge_summaries.md
var mergeSummariesPromptTemplate string

// NoSummary stands in for a child without a summary in folder listings.
const NoSummary = "None"

func BuildFileSummaryPrompt(filePath, language, content string) string {
	return fmt.Sprintf(strings.TrimSpace(fileSummaryPromptTemplate), language, filePath, content)
}

// FolderEntry is one line of a folder listing.
type FolderEntry struct {
	Name    string
	Summary string
}

// FormatFolderListing renders entries as "- name: summary" lines. Empty
// summaries render as NoSummary.
func FormatFolderListing(entries []FolderEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		summary := e.Summary
		if summary == "" {
			summary = NoSummary
		}
		fmt.Fprintf(&sb, "- %s: %s\n", e.Name, summary)
	}
	return sb.String()
}

func BuildFolderSummaryPrompt(folderPath string, entries []FolderEntry) string {
	return fmt.Sprintf(strings.TrimSpace(folderSummaryPromptTemplate), folderPath, FormatFolderListing(entries))
}

func BuildMergeSummariesPrompt(first, second string) string {
	return fmt.Sprintf(strings.TrimSpace(mergeSummariesPromptTemplate), first, second)
}
