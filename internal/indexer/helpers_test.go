package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/llm"
)

// recordingClient answers every prompt through respond and keeps the
// prompts in call order.
type recordingClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (string, error)
}

func (c *recordingClient) Complete(_ context.Context, prompt string, _ int) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	if c.respond == nil {
		return "S(" + prompt + ")", nil
	}
	return c.respond(prompt)
}

func (c *recordingClient) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// lenOracle counts one token per byte.
var lenOracle = llm.OracleFunc(func(p string) int { return len(p) })

// budgetFor returns a budget whose input size is n tokens.
func budgetFor(n int) llm.Budget {
	return llm.Budget{ContextWindow: n + 16, MaxOutputTokens: 16}
}

// quoted returns the first '...'-quoted substring of s.
func quoted(s string) string {
	start := strings.Index(s, "'")
	if start < 0 {
		return ""
	}
	end := strings.Index(s[start+1:], "'")
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// summaryResponder names what each prompt was about.
func summaryResponder(prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Analyze the entire"):
		return "file " + quoted(prompt), nil
	case strings.HasPrefix(prompt, "The folder"):
		return "folder " + filepath.Base(quoted(prompt)), nil
	case strings.HasPrefix(prompt, "Combine"):
		return "merged", nil
	}
	return "other", nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}
