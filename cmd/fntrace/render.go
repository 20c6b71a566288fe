package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fntrace/internal/trace"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE|DIR...",
		Short: "Print record files as trace text or NDJSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRender,
	}
	cmd.Flags().String("format", "text", "output format (text|ndjson)")
	cmd.Flags().Int("max-width", 0, "truncate values to this many cells (0 = unlimited)")
	cmd.Flags().Int("jobs", 0, "files decoded in parallel (0 = GOMAXPROCS)")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	if format == trace.FormatMsgpack {
		return fmt.Errorf("render writes text or ndjson, not %s", format)
	}
	maxWidth, err := cmd.Flags().GetInt("max-width")
	if err != nil {
		return fmt.Errorf("failed to get max-width flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	mode, err := readColor(cmd)
	if err != nil {
		return err
	}

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	files, err := loadRecordFiles(cmd.Context(), paths, jobs)
	if err != nil {
		return err
	}
	if err := firstLoadError(files); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var palette *trace.Palette
	if format == trace.FormatText && mode.Enabled(out) {
		palette = trace.NewPalette(true)
	}
	formatter := trace.NewFormatter(format, maxWidth, palette)

	for _, f := range files {
		if len(files) > 1 && format == trace.FormatText {
			fmt.Fprintf(out, "== %s (session %s, %d events)\n", f.Path, f.Header.Session, len(f.Events))
		}
		for i := range f.Events {
			line, err := formatter.Format(&f.Events[i])
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			if _, err := out.Write(line); err != nil {
				return err
			}
		}
	}
	return nil
}
