package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fntrace"
	"fntrace/internal/config"
	"fntrace/internal/interceptor"
	"fntrace/internal/log"
	"fntrace/internal/trace"
)

// addSessionFlags registers the flags read by setupSession.
func addSessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "session config file (default: nearest fntrace.toml/.yaml)")
	f.Bool("no-config", false, "ignore config files")
	f.String("dir", "", "write one trace file per goroutine into this directory")
	f.String("prefix", "", "per-goroutine file name prefix")
	f.String("format", "text", "trace format (text|ndjson|msgpack)")
	f.Int("max-depth", -1, "emit at most this many levels (negative = unbounded)")
	f.StringToInt("depth", nil, "additional depth per target, e.g. demo.Fib=1")
	f.Int("max-width", 0, "truncate rendered values to this many cells (0 = unlimited)")
	f.Bool("strict", false, "re-panic engine faults")
	f.String("on-sink-error", "drop", "sink failure policy (drop|abort)")
	f.String("on-ambiguous", "ignore", "unresolvable operator calls (ignore|report)")
	f.Bool("metrics", false, "print engine counters after the run")
}

// sessionSetup is what setupSession derived from the flags.
type sessionSetup struct {
	opts    []fntrace.Option
	metrics *prometheus.Registry
	dir     string
}

// setupSession turns session flags into options. Values from a config file
// apply first; flags given explicitly override them.
func setupSession(cmd *cobra.Command) (*sessionSetup, error) {
	flags := cmd.Flags()
	setup := &sessionSetup{}
	add := func(o ...fntrace.Option) { setup.opts = append(setup.opts, o...) }

	add(fntrace.WithWriter(cmd.OutOrStdout()))

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	noConfig, err := flags.GetBool("no-config")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-config flag: %w", err)
	}
	if cfgPath == "" && !noConfig {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		found, ok, err := config.Find(wd)
		if err != nil {
			return nil, err
		}
		if ok {
			cfgPath = found
		}
	}
	if cfgPath != "" && !noConfig {
		add(fntrace.WithConfig(cfgPath))
	}

	verbose, _ := flags.GetBool("verbose")
	logJSON, _ := flags.GetBool("log-json")
	add(fntrace.WithLogger(log.New(log.Options{Verbose: verbose, JSONFormat: logJSON, Stderr: cmd.ErrOrStderr()})))
	add(fntrace.WithErrorHandler(func(err error) {
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
	}))

	if flags.Changed("color") || cfgPath == "" {
		mode, err := readColor(cmd)
		if err != nil {
			return nil, err
		}
		add(fntrace.WithColor(mode))
	}
	if flags.Changed("format") {
		value, _ := flags.GetString("format")
		format, err := trace.ParseFormat(value)
		if err != nil {
			return nil, err
		}
		add(fntrace.WithFormat(format))
	}
	if flags.Changed("dir") {
		setup.dir, _ = flags.GetString("dir")
		add(fntrace.WithDirectory(setup.dir))
	}
	if flags.Changed("prefix") {
		prefix, _ := flags.GetString("prefix")
		add(fntrace.WithPrefix(prefix))
	}
	if flags.Changed("max-depth") {
		n, _ := flags.GetInt("max-depth")
		add(fntrace.WithMaxDepth(n))
	}
	if flags.Changed("depth") {
		depths, err := flags.GetStringToInt("depth")
		if err != nil {
			return nil, fmt.Errorf("failed to get depth flag: %w", err)
		}
		add(fntrace.WithDepths(depths))
	}
	if flags.Changed("max-width") {
		n, _ := flags.GetInt("max-width")
		add(fntrace.WithMaxValueWidth(n))
	}
	if flags.Changed("strict") {
		strict, _ := flags.GetBool("strict")
		add(fntrace.WithStrict(strict))
	}
	if flags.Changed("on-sink-error") {
		value, _ := flags.GetString("on-sink-error")
		p, err := interceptor.ParseSinkErrorPolicy(value)
		if err != nil {
			return nil, err
		}
		add(fntrace.WithSinkErrorPolicy(p))
	}
	if flags.Changed("on-ambiguous") {
		value, _ := flags.GetString("on-ambiguous")
		p, err := interceptor.ParseAmbiguityPolicy(value)
		if err != nil {
			return nil, err
		}
		add(fntrace.WithAmbiguityPolicy(p))
	}
	if on, _ := flags.GetBool("metrics"); on {
		setup.metrics = prometheus.NewRegistry()
		add(fntrace.WithMetrics(setup.metrics))
	}
	return setup, nil
}
