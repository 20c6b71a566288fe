package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fntrace/internal/interceptor"
	"fntrace/internal/trace"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "fntrace.toml", `
[session]
include_hidden = true
max_depth = 4
on_sink_error = "abort"
on_ambiguous = "report"

[sink]
kind = "dir"
directory = "traces"
format = "msgpack"
prefix = "run"

[depths]
"calc.Fib" = 1
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.True(t, s.IncludeHidden)
	require.Equal(t, 4, s.MaxDepth)
	require.Equal(t, interceptor.SinkErrorAbort, s.OnSinkError)
	require.Equal(t, interceptor.AmbiguityReport, s.OnAmbiguous)
	require.Equal(t, map[string]int{"calc.Fib": 1}, s.Depths)
	require.Equal(t, trace.ModeDir, s.Sink.Mode)
	require.Equal(t, trace.FormatMsgpack, s.Sink.Format)
	require.Equal(t, filepath.Join(dir, "traces"), s.Sink.Directory)
	require.Equal(t, "run", s.Sink.Prefix)
}

func TestLoadYAML(t *testing.T) {
	path := write(t, t.TempDir(), "fntrace.yaml", `
session:
  strict: true
sink:
  output: stderr
  color: never
  max_value_width: 40
depths:
  demo.G: 0
`)

	s, err := Load(path)
	require.NoError(t, err)
	require.True(t, s.Strict)
	require.Equal(t, -1, s.MaxDepth)
	require.Equal(t, trace.ModeStream, s.Sink.Mode)
	require.Equal(t, os.Stderr, s.Sink.Output)
	require.Equal(t, trace.ColorOff, s.Sink.Color)
	require.Equal(t, 40, s.Sink.MaxWidth)
	require.Equal(t, map[string]int{"demo.G": 0}, s.Depths)
}

func TestLoadEmptyYAMLUsesDefaults(t *testing.T) {
	s, err := Load(write(t, t.TempDir(), "fntrace.yml", ""))
	require.NoError(t, err)
	require.Equal(t, -1, s.MaxDepth)
	require.Equal(t, interceptor.SinkErrorDrop, s.OnSinkError)
	require.Nil(t, s.Sink.Output, "unset output leaves the writer to the caller")
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.toml": "[session]\nverbose = true\n",
		"depth.toml":   "[depths]\n\"f\" = -1\n",
		"max.toml":     "[session]\nmax_depth = -2\n",
		"dir.toml":     "[sink]\nkind = \"dir\"\n",
		"policy.toml":  "[session]\non_sink_error = \"retry\"\n",
		"format.toml":  "[sink]\nformat = \"xml\"\n",
		"output.toml":  "[sink]\noutput = \"/tmp/x\"\n",
		"kind.toml":    "[sink]\nkind = \"\"\n",
		"unknown.yaml": "session:\n  verbose: true\n",
		"config.json":  "{}",
		"broken.toml":  "[session\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, dir, name, content))
			require.Error(t, err)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok, err := Find(nested)
	require.NoError(t, err)
	if ok {
		t.Skip("a config file exists above the temp dir")
	}

	want := write(t, root, "fntrace.yaml", "")
	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}
