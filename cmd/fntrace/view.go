package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fntrace/internal/trace"
	"fntrace/internal/ui"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view FILE|DIR...",
		Short: "Browse record files in an interactive pager",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runView,
	}
	cmd.Flags().Int("max-width", 0, "truncate values to this many cells (0 = unlimited)")
	cmd.Flags().Int("jobs", 0, "files decoded in parallel (0 = GOMAXPROCS)")
	return cmd
}

func runView(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return errors.New("view needs a terminal; use render instead")
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

	formatter := &trace.TextFormatter{MaxWidth: maxWidth, Palette: trace.NewPalette(mode != trace.ColorOff)}
	traces := make(chan ui.Trace, len(paths))
	outcomeCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		files, err := loadRecordFiles(ctx, paths, jobs)
		if err == nil {
			err = firstLoadError(files)
		}
		if err == nil {
			for _, f := range files {
				t, renderErr := renderTrace(f, formatter)
				if renderErr != nil {
					err = renderErr
					break
				}
				traces <- t
			}
		}
		outcomeCh <- err
		close(traces)
	}()

	model := ui.NewViewer("fntrace view", traces)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	loadErr := <-outcomeCh
	if uiErr != nil {
		return uiErr
	}
	return loadErr
}

// renderTrace formats a record file into pager lines.
func renderTrace(f recordFile, formatter trace.Formatter) (ui.Trace, error) {
	lines := make([]string, 0, len(f.Events))
	for i := range f.Events {
		b, err := formatter.Format(&f.Events[i])
		if err != nil {
			return ui.Trace{}, fmt.Errorf("%s: %w", f.Path, err)
		}
		lines = append(lines, strings.TrimSuffix(string(b), "\n"))
	}
	return ui.Trace{
		Title:   filepath.Base(f.Path),
		Session: f.Header.Session,
		Events:  len(f.Events),
		Lines:   lines,
	}, nil
}
