package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var quiet bytes.Buffer
	l := New(Options{Stderr: &quiet})
	l.Debug("hidden")
	l.Warn("shown", "target", "calc.Add")
	require.NotContains(t, quiet.String(), "hidden")
	require.Contains(t, quiet.String(), "target=calc.Add")

	var verbose bytes.Buffer
	New(Options{Stderr: &verbose, Verbose: true}).Debug("visible")
	require.Contains(t, verbose.String(), "visible")
}

func TestNewJSONAndDebugWriter(t *testing.T) {
	var stderr, debug bytes.Buffer
	l := New(Options{Stderr: &stderr, JSONFormat: true, Debug: &debug}).With("session", "abc")
	l.Debug("only in debug")
	l.Error("everywhere")

	require.NotContains(t, stderr.String(), "only in debug")
	require.True(t, strings.HasPrefix(stderr.String(), "{"))
	require.Contains(t, debug.String(), `"msg":"only in debug"`)
	require.Contains(t, debug.String(), `"session":"abc"`)
	require.Equal(t, 2, strings.Count(debug.String(), "\n"))
}

func TestDiscard(t *testing.T) {
	require.NotNil(t, OrDiscard(nil))
	require.False(t, Discard().Enabled(t.Context(), 12))
}
