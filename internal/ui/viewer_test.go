package ui

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/require"
)

func newTestViewer(t *testing.T, traces ...Trace) *viewerModel {
	t.Helper()
	m := NewViewer("run", nil).(*viewerModel)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	for _, tr := range traces {
		m.Update(traceMsg(tr))
	}
	m.Update(doneMsg{})
	return m
}

func press(m *viewerModel, key tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(key)
	return cmd
}

func TestViewerShowsFirstTrace(t *testing.T) {
	m := newTestViewer(t,
		Trace{Title: "run-g1.fntr", Session: "s1", Events: 2, Lines: []string{"- calc.Add(2, 3)", "-> 5"}},
		Trace{Title: "run-g7.fntr", Events: 2, Lines: []string{"- calc.Fib(1)", "-> 1"}},
	)
	view := m.View()
	require.Contains(t, view, "[1/2] 2 events")
	require.Contains(t, view, "session s1")
	require.Contains(t, view, "- calc.Add(2, 3)")
	require.NotContains(t, view, "calc.Fib")
}

func TestViewerSwitchesTraces(t *testing.T) {
	m := newTestViewer(t,
		Trace{Title: "a", Lines: []string{"first"}},
		Trace{Title: "b", Lines: []string{"second"}},
	)

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 1, m.current)
	require.Contains(t, m.View(), "second")

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 0, m.current, "wraps forward")

	press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, 1, m.current, "wraps backward")
}

func TestViewerScrolls(t *testing.T) {
	lines := make([]string, 50)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %02d", i)
	}
	m := newTestViewer(t, Trace{Title: "long", Lines: lines})
	require.Equal(t, 7, m.vp.Height)
	require.Contains(t, m.View(), "line 00")

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	require.True(t, m.vp.AtBottom())
	require.Contains(t, m.View(), "line 49")

	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	require.True(t, m.vp.AtTop())
}

func TestViewerQuit(t *testing.T) {
	m := newTestViewer(t)
	cmd := press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
	require.Empty(t, m.View())
}

func TestViewerWaitsForTraces(t *testing.T) {
	m := NewViewer("run", nil).(*viewerModel)
	require.Contains(t, m.View(), "waiting for traces")
}

func TestListenForTrace(t *testing.T) {
	ch := make(chan Trace, 1)
	m := NewViewer("run", ch).(*viewerModel)

	ch <- Trace{Title: "x"}
	require.Equal(t, traceMsg(Trace{Title: "x"}), m.listenForTrace()())

	close(ch)
	require.Equal(t, doneMsg{}, m.listenForTrace()())
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd...", truncate("abcdefghij", 7))
	require.Equal(t, "ab", truncate("abcdef", 2))
	require.Equal(t, "日本...", truncate("日本語テキスト", 7))
	require.Equal(t, 7, runewidth.StringWidth(truncate("abcdefghij", 7)))
	require.Equal(t, "abcdef", truncate("abcdef", 0))
}
