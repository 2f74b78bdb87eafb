package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"caseassist/internal/domain"
	"caseassist/internal/engine"
	"caseassist/internal/insights"
)

// Finder is the TUI-facing subset of the retrieval engine.
type Finder interface {
	FindSimilar(ctx context.Context, q engine.Query) ([]domain.CaseSummary, error)
}

// Model is the Bubble Tea model for the agent-assist console.
type Model struct {
	finder     Finder
	input      textinput.Model
	viewport   viewport.Model
	results    []domain.CaseSummary
	confidence float64
	header     string
	status     string
	cursor     int
	filter     *domain.Outcome
	ready      bool
}

// filter cycle: all -> resolved -> unresolved -> escalated -> all
var filterCycle = []domain.Outcome{domain.OutcomeResolved, domain.OutcomeUnresolved, domain.OutcomeEscalated}

// New creates a new console model over the given finder.
func New(finder Finder, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the customer issue and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		finder:   finder,
		input:    ti,
		viewport: vp,
		header:   header,
		status:   "Knowledge base loaded. Type to find similar cases. Ctrl+F cycles the outcome filter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.runQuery(q)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "ctrl+f":
			m.filter = nextFilter(m.filter)
			m.status = "Outcome filter: " + filterLabel(m.filter)
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runQuery(q string) {
	res, err := m.finder.FindSimilar(context.Background(), engine.Query{Text: q, OutcomeFilter: m.filter})
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		m.confidence = 0
		return
	}
	m.results = res
	m.confidence = insights.Confidence(res)
	m.cursor = 0
	if len(res) == 0 {
		m.status = fmt.Sprintf("No similar case for %q (filter: %s)", q, filterLabel(m.filter))
	} else {
		m.status = fmt.Sprintf("%d similar case(s) for %q, confidence %.2f (filter: %s)",
			len(res), q, m.confidence, filterLabel(m.filter))
	}
}

// View renders the console layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Case Assist")
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + sub + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Case %d/%d  id=%s  score=%.3f", m.cursor+1, len(m.results), r.ID, r.Score)
	meta := fmt.Sprintf("topic=%s  outcome=%s", r.Topic, outcomeStyle(r.Outcome).Render(string(r.Outcome)))
	return title + "\n" + meta + "\n\n" + r.Excerpt
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func outcomeStyle(o domain.Outcome) lipgloss.Style {
	switch o {
	case domain.OutcomeResolved:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	case domain.OutcomeEscalated:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	}
}

func nextFilter(cur *domain.Outcome) *domain.Outcome {
	if cur == nil {
		f := filterCycle[0]
		return &f
	}
	for i, o := range filterCycle {
		if o == *cur {
			if i == len(filterCycle)-1 {
				return nil
			}
			f := filterCycle[i+1]
			return &f
		}
	}
	return nil
}

func filterLabel(f *domain.Outcome) string {
	if f == nil {
		return "all"
	}
	return string(*f)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
