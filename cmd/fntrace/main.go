package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fntrace/internal/trace"
	"fntrace/internal/version"
)

// newRootCmd builds the command tree. Tests build a fresh one per run.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fntrace",
		Short:         "Function call tracer",
		Long:          `fntrace runs instrumented code under a tracing session and inspects the record files it writes`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newDemoCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log engine diagnostics to stderr")
	rootCmd.PersistentFlags().Bool("log-json", false, "log diagnostics as JSON")
	return rootCmd
}

// main executes the root command and exits with status 1 on error.
func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("error:", err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// readColor resolves the --color flag.
func readColor(cmd *cobra.Command) (trace.ColorMode, error) {
	value, err := cmd.Flags().GetString("color")
	if err != nil {
		return trace.ColorAuto, fmt.Errorf("failed to get color flag: %w", err)
	}
	return trace.ParseColorMode(value)
}
