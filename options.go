package fntrace

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"fntrace/internal/config"
	"fntrace/internal/interceptor"
	"fntrace/internal/trace"
)

// Re-exported engine types.
type (
	Event           = trace.Event
	Kind            = trace.Kind
	Named           = trace.Named
	Formatter       = trace.Formatter
	Format          = trace.Format
	ColorMode       = trace.ColorMode
	SinkErrorPolicy = interceptor.SinkErrorPolicy
	AmbiguityPolicy = interceptor.AmbiguityPolicy
)

const (
	KindEnter     = trace.KindEnter
	KindExit      = trace.KindExit
	KindException = trace.KindException

	FormatText    = trace.FormatText
	FormatNDJSON  = trace.FormatNDJSON
	FormatMsgpack = trace.FormatMsgpack

	ColorAuto = trace.ColorAuto
	ColorOn   = trace.ColorOn
	ColorOff  = trace.ColorOff

	SinkErrorDrop  = interceptor.SinkErrorDrop
	SinkErrorAbort = interceptor.SinkErrorAbort

	AmbiguityIgnore = interceptor.AmbiguityIgnore
	AmbiguityReport = interceptor.AmbiguityReport
)

type settings struct {
	includeHidden bool
	depths        map[string]int
	sink          trace.Config
	custom        trace.Sink
	tail          int
	engine        interceptor.Options
	metrics       prometheus.Registerer
	err           error
}

func defaultSettings() *settings {
	return &settings{
		depths: make(map[string]int),
		sink:   trace.Config{Mode: trace.ModeStream, Output: os.Stdout},
		engine: interceptor.DefaultOptions(),
	}
}

// Option configures a session.
type Option func(*settings)

// WithIncludeHidden also traces namespace members whose name starts with an
// underscore or a lowercase letter.
func WithIncludeHidden(include bool) Option {
	return func(s *settings) { s.includeHidden = include }
}

// WithDepths sets additional depths keyed by display name ("calc.Fib") or
// full symbol. They override depths given with Limit.
func WithDepths(depths map[string]int) Option {
	return func(s *settings) {
		for k, v := range depths {
			s.depths[k] = v
		}
	}
}

// WithMaxDepth emits at most n levels. Negative is unbounded, the default.
func WithMaxDepth(n int) Option {
	return func(s *settings) { s.engine.MaxDepth = n }
}

// WithStdout writes trace lines to standard output, the default.
func WithStdout() Option {
	return WithWriter(os.Stdout)
}

// WithWriter writes trace lines to w. Lines of different goroutines may
// interleave, never within a line.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.sink.Mode = trace.ModeStream
		s.sink.Output = w
	}
}

// WithDirectory writes one file per goroutine under dir, created if absent.
func WithDirectory(dir string) Option {
	return func(s *settings) {
		s.sink.Mode = trace.ModeDir
		s.sink.Directory = dir
	}
}

// WithPrefix sets the per-goroutine file name prefix used by WithDirectory.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.sink.Prefix = prefix }
}

// WithRing keeps the last size events in memory; see Session.Events.
func WithRing(size int) Option {
	return func(s *settings) {
		s.sink.Mode = trace.ModeRing
		s.sink.RingSize = size
	}
}

// WithTail also keeps the last size events in memory next to the configured
// sink, for Session.Events.
func WithTail(size int) Option {
	return func(s *settings) { s.tail = size }
}

// WithSink sends events to a caller-provided sink.
func WithSink(sink trace.Sink) Option {
	return func(s *settings) { s.custom = sink }
}

// WithFormat selects text, ndjson or msgpack output.
func WithFormat(f Format) Option {
	return func(s *settings) { s.sink.Format = f }
}

// WithFormatter replaces the built-in formatter.
func WithFormatter(f Formatter) Option {
	return func(s *settings) { s.sink.Formatter = f }
}

// WithColor controls ANSI colors in text output.
func WithColor(mode ColorMode) Option {
	return func(s *settings) { s.sink.Color = mode }
}

// WithMaxValueWidth truncates each rendered value to n terminal cells.
func WithMaxValueWidth(n int) Option {
	return func(s *settings) { s.sink.MaxWidth = n }
}

// WithStrict re-panics faults raised inside the engine instead of dropping them.
func WithStrict(strict bool) Option {
	return func(s *settings) { s.engine.Strict = strict }
}

// WithSinkErrorPolicy decides whether a failed write drops the event or
// aborts the session.
func WithSinkErrorPolicy(p SinkErrorPolicy) Option {
	return func(s *settings) { s.engine.OnSinkError = p }
}

// WithAmbiguityPolicy decides whether unresolvable operator calls are reported.
func WithAmbiguityPolicy(p AmbiguityPolicy) Option {
	return func(s *settings) { s.engine.OnAmbiguous = p }
}

// WithErrorHandler receives every error the engine reports while tracing.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) { s.engine.OnError = fn }
}

// WithLogger sets the logger for engine diagnostics. Nothing is logged by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.engine.Logger = l }
}

// WithMetrics registers engine counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.metrics = reg }
}

// WithConfig applies a fntrace.toml or fntrace.yaml file. Options given
// after it override its values.
func WithConfig(path string) Option {
	return func(s *settings) {
		cfg, err := config.Load(path)
		if err != nil {
			s.err = err
			return
		}
		s.includeHidden = cfg.IncludeHidden
		s.engine.MaxDepth = cfg.MaxDepth
		s.engine.Strict = cfg.Strict
		s.engine.OnSinkError = cfg.OnSinkError
		s.engine.OnAmbiguous = cfg.OnAmbiguous
		for k, v := range cfg.Depths {
			s.depths[k] = v
		}
		formatter, output := s.sink.Formatter, s.sink.Output
		s.sink = cfg.Sink
		s.sink.Formatter = formatter
		// a config without [sink].output keeps the writer chosen so far
		if s.sink.Output == nil {
			s.sink.Output = output
		}
	}
}
