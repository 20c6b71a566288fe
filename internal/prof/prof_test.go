package prof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfilerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Heap:  filepath.Join(dir, "heap.pprof"),
		Trace: filepath.Join(dir, "run.trace"),
	}
	p, err := Start(paths)
	require.NoError(t, err)
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop(), "second stop is a no-op")

	for _, path := range []string{paths.CPU, paths.Heap, paths.Trace} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		require.NotZero(t, info.Size(), path)
	}
}

func TestProfilerNothingSelected(t *testing.T) {
	p, err := Start(Paths{})
	require.NoError(t, err)
	require.NoError(t, p.Stop())
}

func TestProfilerBadPathStopsCPU(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Paths{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Trace: filepath.Join(dir, "missing", "run.trace"),
	})
	require.ErrorContains(t, err, "runtime trace")

	// the CPU profile was released, so a new one can start
	p, err := Start(Paths{CPU: filepath.Join(dir, "cpu2.pprof")})
	require.NoError(t, err)
	require.NoError(t, p.Stop())
}

func TestNilProfiler(t *testing.T) {
	var p *Profiler
	require.NoError(t, p.Stop())
}
