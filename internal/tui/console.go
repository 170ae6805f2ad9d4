package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ishaan812/treeqa/internal/chat"
)

// AskFunc answers one question.
type AskFunc func(ctx context.Context, question string) (*chat.Answer, error)

type answerMsg struct {
	answer *chat.Answer
	err    error
}

// ConsoleModel is the Bubbletea model for the interactive Q&A console.
type ConsoleModel struct {
	width  int
	height int

	ask       AskFunc
	indexName string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	transcript  []string // markdown, one block per exchange
	pending     string
	busy        bool
	showContext bool
	cancel      context.CancelFunc

	quitting bool
}

// NewConsoleModel creates a new console model.
func NewConsoleModel(ask AskFunc, indexName string) ConsoleModel {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about the code..."
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = questionStyle

	return ConsoleModel{
		ask:       ask,
		indexName: indexName,
		input:     ti,
		spinner:   sp,
		viewport:  viewport.New(0, 0),
	}
}

func (m ConsoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 10)
		m.viewport.Width = max(msg.Width-2, 20)
		m.viewport.Height = max(msg.Height-7, 3)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit
		case tea.KeyCtrlT:
			m.showContext = !m.showContext
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.Reset()
			m.pending = q
			m.busy = true
			m.refresh()

			ctx, cancel := context.WithCancel(context.Background())
			m.cancel = cancel
			return m, tea.Batch(m.spinner.Tick, askCmd(ctx, m.ask, q))
		}

	case answerMsg:
		m.busy = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil {
			m.transcript = append(m.transcript, "**"+m.pending+"**\n\n"+errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, AnswerMarkdown(msg.answer, m.showContext))
		}
		m.pending = ""
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func askCmd(ctx context.Context, ask AskFunc, q string) tea.Cmd {
	return func() tea.Msg {
		a, err := ask(ctx, q)
		return answerMsg{answer: a, err: err}
	}
}

func (m *ConsoleModel) refresh() {
	var b strings.Builder
	for _, block := range m.transcript {
		b.WriteString(RenderMarkdown(block, m.viewport.Width-2))
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("> " + m.pending))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Italic(true).Render("  Ask anything about " + m.indexName + ". Answers come with context and answer relevance feedback."))
	}
	m.viewport.SetContent(b.String())
}

// Transcript returns the markdown of every finished exchange.
func (m ConsoleModel) Transcript() []string {
	return m.transcript
}

func (m ConsoleModel) View() string {
	if m.quitting {
		return ""
	}

	title := titleStyle.Render("treeqa") + subtitleStyle.Render(m.indexName)
	title += lipgloss.NewStyle().Background(lipgloss.Color("236")).
		Render(strings.Repeat(" ", max(m.width-lipgloss.Width(title), 0)))

	body := panelStyle.Width(max(m.width-2, 20)).Render(m.viewport.View())

	prompt := m.input.View()
	if m.busy {
		prompt = m.spinner.View() + " " + dimStyle.Render("Thinking...")
	}

	help := "  enter ask  ctrl+t toggle context  pgup/pgdn scroll  esc quit"
	if m.showContext {
		help = "  enter ask  ctrl+t hide context  pgup/pgdn scroll  esc quit"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		body,
		inputStyle.Width(max(m.width-4, 20)).Render(prompt),
		helpStyle.Render(help),
	)
}

// RunConsole launches the full-screen console TUI.
func RunConsole(ask AskFunc, indexName string) error {
	model := NewConsoleModel(ask, indexName)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
