package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Trace is one rendered trace, usually a goroutine's record file.
type Trace struct {
	Title   string
	Session string
	Events  int
	Lines   []string
}

type viewerModel struct {
	title    string
	traces   <-chan Trace
	spinner  spinner.Model
	prog     progress.Model
	vp       viewport.Model
	items    []Trace
	current  int
	width    int
	height   int
	loading  bool
	quitting bool
}

type traceMsg Trace
type doneMsg struct{}

// header, tab bar and footer
const chromeLines = 5

// NewViewer returns a Bubble Tea model that pages through traces as they
// arrive on the channel. The sender closes the channel when loading ends.
func NewViewer(title string, traces <-chan Trace) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &viewerModel{
		title:   title,
		traces:  traces,
		spinner: sp,
		prog:    prog,
		vp:      viewport.New(80, 20),
		width:   80,
		height:  20 + chromeLines,
		loading: true,
	}
}

func (m *viewerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForTrace())
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case traceMsg:
		m.items = append(m.items, Trace(msg))
		if len(m.items) == 1 {
			m.show(0)
		}
		return m, m.listenForTrace()
	case doneMsg:
		m.loading = false
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.vp.Width = msg.Width
			m.prog.Width = max(msg.Width-4, 10)
		}
		if msg.Height > 0 {
			m.height = msg.Height
			m.vp.Height = max(msg.Height-chromeLines, 1)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "tab", "right":
			m.show(m.current + 1)
			return m, nil
		case "shift+tab", "left":
			m.show(m.current - 1)
			return m, nil
		case "g", "home":
			m.vp.GotoTop()
			return m, nil
		case "G", "end":
			m.vp.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// show switches to trace i, wrapping around at both ends.
func (m *viewerModel) show(i int) {
	n := len(m.items)
	if n == 0 {
		return
	}
	m.current = ((i % n) + n) % n
	m.vp.SetContent(strings.Join(m.items[m.current].Lines, "\n"))
	m.vp.GotoTop()
}

func (m *viewerModel) View() string {
	if m.quitting {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.loading {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}
	if n := len(m.items); n > 0 {
		cur := m.items[m.current]
		header = fmt.Sprintf("%s  [%d/%d] %d events", header, m.current+1, n, cur.Events)
		if cur.Session != "" {
			header = fmt.Sprintf("%s  session %s", header, cur.Session)
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(header, m.width)))
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")
	if len(m.items) == 0 {
		b.WriteString("  waiting for traces...")
	} else {
		b.WriteString(m.vp.View())
	}
	b.WriteString("\n")
	b.WriteString(m.prog.ViewAs(m.vp.ScrollPercent()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/shift+tab switch  j/k scroll  g/G top/bottom  q quit"))
	return b.String()
}

var (
	activeTab   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// tabs lists the loaded traces, each title cut to an equal share of the width.
func (m *viewerModel) tabs() string {
	n := len(m.items)
	if n == 0 {
		return ""
	}
	share := max(m.width/n-1, 8)
	parts := make([]string, n)
	for i, item := range m.items {
		name := truncate(item.Title, share)
		if i == m.current {
			parts[i] = activeTab.Render(name)
		} else {
			parts[i] = inactiveTab.Render(name)
		}
	}
	return strings.Join(parts, " ")
}

func (m *viewerModel) listenForTrace() tea.Cmd {
	return func() tea.Msg {
		if m.traces == nil {
			return doneMsg{}
		}
		t, ok := <-m.traces
		if !ok {
			return doneMsg{}
		}
		return traceMsg(t)
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// the tail counts toward width
	return runewidth.Truncate(value, width, "...")
}
