package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fntrace/internal/trace"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE|DIR...",
		Short: "Verify that record files are well nested",
		Long: `Check decodes record files and verifies that every enter is closed by
exactly one exit or exception at the same level, per goroutine.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().Int("jobs", 0, "files decoded in parallel (0 = GOMAXPROCS)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	files, err := loadRecordFiles(cmd.Context(), paths, jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, f := range files {
		err := f.Err
		if err == nil {
			err = trace.CheckNesting(f.Events)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", f.Path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d events)\n", f.Path, len(f.Events))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
