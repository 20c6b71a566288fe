package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fntrace/internal/prof"
)

func addProfilingFlags(cmd *cobra.Command) {
	cmd.Flags().String("cpu-profile", "", "write a CPU profile of the traced run")
	cmd.Flags().String("mem-profile", "", "write a heap profile after the run")
	cmd.Flags().String("runtime-trace", "", "write a Go runtime execution trace")
}

// setupProfiling starts the profilers selected by flags. The returned
// profiler is nil-safe and its Stop may be called more than once.
func setupProfiling(cmd *cobra.Command) (*prof.Profiler, error) {
	cpuProfile, err := cmd.Flags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := cmd.Flags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := cmd.Flags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if cpuProfile == "" && memProfile == "" && tracePath == "" {
		return nil, nil
	}
	return prof.Start(prof.Paths{CPU: cpuProfile, Heap: memProfile, Trace: tracePath})
}
