package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ishaan812/treeqa/internal/chat"
)

// AnswerMarkdown renders an answer, its two feedback judgments and,
// optionally, the retrieved context as markdown.
func AnswerMarkdown(a *chat.Answer, withContext bool) string {
	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", a.Question)
	md.WriteString(strings.TrimSpace(a.Answer))
	md.WriteString("\n\n### Context feedback\n\n")
	md.WriteString(strings.TrimSpace(a.ContextFeedback))
	md.WriteString("\n\n### Answer feedback\n\n")
	md.WriteString(strings.TrimSpace(a.AnswerFeedback))
	md.WriteString("\n")

	if withContext && len(a.Context) > 0 {
		md.WriteString("\n### Context\n\n")
		for _, r := range a.Context {
			fmt.Fprintf(&md, "- `%s` (%.3f): %s\n", r.Path, r.Score, oneLine(r.Text))
		}
	}
	return md.String()
}

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when rendering fails.
func RenderMarkdown(md string, width int) string {
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 160 {
		return s[:157] + "..."
	}
	return s
}
