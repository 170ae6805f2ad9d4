package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFileSummaryPrompt(t *testing.T) {
	got := BuildFileSummaryPrompt("pkg/a.py", "Python", "x = 1  # 100%")
	assert.Contains(t, got, "Analyze the entire Python file 'pkg/a.py' and provide a summary")
	assert.Contains(t, got, "--- Code ---\nx = 1  # 100%\n--- End of Code ---\n\nSummary:")
}

func TestBuildMergeSummariesPrompt(t *testing.T) {
	assert.Equal(t,
		"Combine the following two partial summaries into one:\n\nSummary 1:\nS1\n\nSummary 2:\nS2\n\nCombined Summary:",
		BuildMergeSummariesPrompt("S1", "S2"))
}

func TestBuildFolderSummaryPrompt(t *testing.T) {
	got := BuildFolderSummaryPrompt("src", []FolderEntry{
		{Name: "a.py", Summary: "does a"},
		{Name: "notes.txt"},
	})
	assert.Equal(t,
		"The folder 'src' contains the following files and their summaries:\n"+
			"- a.py: does a\n- notes.txt: None\n\n"+
			"Provide a importance weighted, high level, summary of the folder's contents considering the information provided above.",
		got)
}
