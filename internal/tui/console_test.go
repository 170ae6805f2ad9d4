package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/chat"
	"github.com/ishaan812/treeqa/internal/retrieval"
)

func sampleAnswer() *chat.Answer {
	return &chat.Answer{
		Question:        "What does the parser do?",
		Answer:          "It turns tokens into an AST.",
		ContextFeedback: "The context is relevant.",
		AnswerFeedback:  "The answer is relevant.",
		Context: []retrieval.Result{
			{Path: "repo/parser", Text: "parses\n  tokens", Score: 0.91},
		},
	}
}

func TestAnswerMarkdown(t *testing.T) {
	md := AnswerMarkdown(sampleAnswer(), false)
	assert.Contains(t, md, "## What does the parser do?")
	assert.Contains(t, md, "It turns tokens into an AST.")
	assert.Contains(t, md, "### Context feedback\n\nThe context is relevant.")
	assert.Contains(t, md, "### Answer feedback\n\nThe answer is relevant.")
	assert.NotContains(t, md, "repo/parser")

	md = AnswerMarkdown(sampleAnswer(), true)
	assert.Contains(t, md, "- `repo/parser` (0.910): parses tokens")
}

func TestRenderMarkdown_KeepsText(t *testing.T) {
	out := RenderMarkdown("# Title\n\nsome body text", 10)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "body")
}

func sized(m ConsoleModel) ConsoleModel {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(ConsoleModel)
}

func TestConsole_AskFlow(t *testing.T) {
	var asked []string
	ask := func(_ context.Context, q string) (*chat.Answer, error) {
		asked = append(asked, q)
		return sampleAnswer(), nil
	}
	m := sized(NewConsoleModel(ask, "repo"))

	m.input.SetValue("  what does the parser do  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ConsoleModel)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, "what does the parser do", m.pending)
	assert.Empty(t, m.input.Value())

	// A second enter while busy is ignored.
	_, cmd2 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd2)

	msg := askCmd(context.Background(), ask, m.pending)()
	next, _ = m.Update(msg)
	m = next.(ConsoleModel)

	assert.False(t, m.busy)
	assert.Empty(t, m.pending)
	assert.Equal(t, []string{"what does the parser do"}, asked)
	require.Len(t, m.Transcript(), 1)
	assert.Contains(t, m.Transcript()[0], "It turns tokens into an AST.")
	assert.Contains(t, m.View(), "treeqa")
}

func TestConsole_EmptyInputDoesNothing(t *testing.T) {
	m := sized(NewConsoleModel(func(context.Context, string) (*chat.Answer, error) {
		t.Fatal("ask should not be called")
		return nil, nil
	}, "repo"))

	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, next.(ConsoleModel).busy)
}

func TestConsole_ErrorIsShown(t *testing.T) {
	m := sized(NewConsoleModel(nil, "repo"))
	m.pending = "why?"
	m.busy = true

	next, _ := m.Update(answerMsg{err: errors.New("model unavailable")})
	m = next.(ConsoleModel)
	require.Len(t, m.Transcript(), 1)
	assert.True(t, strings.Contains(m.Transcript()[0], "model unavailable"))
	assert.False(t, m.busy)
}

func TestConsole_ToggleContextAndQuit(t *testing.T) {
	m := sized(NewConsoleModel(nil, "repo"))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	m = next.(ConsoleModel)
	assert.True(t, m.showContext)
	assert.Contains(t, m.View(), "hide context")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(ConsoleModel)
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}
