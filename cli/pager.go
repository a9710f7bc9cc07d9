package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// headerHeight and footerHeight are the lines around the viewport
const (
	headerHeight = 1
	footerHeight = 1
)

// pagerModel shows rendered resource contents
type pagerModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
	numbers  bool
}

// NewPager creates a pager showing content under title
func NewPager(title, content string) *pagerModel {
	return &pagerModel{title: title, content: content}
}

// Init implements tea.Model
func (m *pagerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		case "l":
			m.numbers = !m.numbers
			m.viewport.SetContent(m.body())
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - headerHeight - footerHeight
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.body())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *pagerModel) View() string {
	if !m.ready {
		return "\nInitializing..."
	}

	header := titleStyle.Render(m.title)
	help := helpStyle.Render(fmt.Sprintf(
		"%3.f%% • ↑/k ↓/j scroll • g/G top/bottom • l line numbers • q quit",
		m.viewport.ScrollPercent()*100,
	))
	return header + "\n" + m.viewport.View() + "\n" + help
}

// body returns the content, prefixed with line numbers when enabled
func (m *pagerModel) body() string {
	if !m.numbers {
		return m.content
	}

	lines := strings.Split(m.content, "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(lineNumberStyle.Render(fmt.Sprintf("%*d ", width, i+1)))
		b.WriteString(line)
	}
	return b.String()
}

// RunPager starts the pager program with the given content
func RunPager(title, content string) error {
	p := tea.NewProgram(
		NewPager(title, content),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
