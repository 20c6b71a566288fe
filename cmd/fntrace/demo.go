package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fntrace"
	"fntrace/internal/demo"
	"fntrace/internal/observ"
	"fntrace/internal/trace"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Trace the bundled sample functions",
		Long: `Run a small instrumented program (Add, recursive Fib, a panicking Div,
an operator instance and a few methods) under a tracing session.`,
		Args: cobra.NoArgs,
		RunE: runDemo,
	}
	addSessionFlags(cmd)
	cmd.Flags().Int("fib", 5, "argument of the Fib call")
	cmd.Flags().Int("fib-depth", 1, "levels shown beneath the outermost Fib (negative = all)")
	cmd.Flags().Int("workers", 0, "goroutines computing Fib concurrently")
	cmd.Flags().Bool("timings", false, "print attach, run and detach timings")
	cmd.Flags().Int("tail", 0, "also print the last N trace events to stderr")
	addProfilingFlags(cmd)
	return cmd
}

func runDemo(cmd *cobra.Command, args []string) error {
	setup, err := setupSession(cmd)
	if err != nil {
		return err
	}
	fib, err := cmd.Flags().GetInt("fib")
	if err != nil {
		return fmt.Errorf("failed to get fib flag: %w", err)
	}
	fibDepth, err := cmd.Flags().GetInt("fib-depth")
	if err != nil {
		return fmt.Errorf("failed to get fib-depth flag: %w", err)
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return fmt.Errorf("failed to get workers flag: %w", err)
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	tail, err := cmd.Flags().GetInt("tail")
	if err != nil {
		return fmt.Errorf("failed to get tail flag: %w", err)
	}
	opts := setup.opts
	if tail > 0 {
		opts = append(opts, fntrace.WithTail(tail))
	}

	profiler, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}()

	timer := observ.NewTimer()
	end := timer.Begin("attach")
	session, err := fntrace.Start(demo.Targets(fibDepth), opts...)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	// Stop is idempotent; this covers a panicking run
	defer session.Stop()
	end(fmt.Sprintf("%d targets", len(session.Targets())))

	end = timer.Begin("run")
	runErr := demo.Run(cmd.Context(), demo.Options{Fib: fib, Workers: workers})
	end("")

	end = timer.Begin("detach")
	stopErr := session.Stop()
	end("session " + session.ID())

	if stopErr != nil {
		return fmt.Errorf("trace: %w", stopErr)
	}
	if runErr != nil {
		return runErr
	}

	errOut := cmd.ErrOrStderr()
	if setup.dir != "" {
		fmt.Fprintf(errOut, "trace files written to %s\n", setup.dir)
	}
	if tail > 0 {
		if err := printTail(errOut, session.Events()); err != nil {
			return err
		}
	}
	if timings {
		if err := timer.WriteSummary(errOut); err != nil {
			return err
		}
	}
	if setup.metrics != nil {
		return printMetrics(errOut, setup.metrics)
	}
	return nil
}

// printTail writes the kept events as plain text lines.
func printTail(out io.Writer, events []fntrace.Event) error {
	if _, err := fmt.Fprintf(out, "last %d events:\n", len(events)); err != nil {
		return err
	}
	f := &trace.TextFormatter{}
	for i := range events {
		line, err := f.Format(&events[i])
		if err != nil {
			return err
		}
		if _, err := out.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// printMetrics writes one "name{labels} value" line per sample.
func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
