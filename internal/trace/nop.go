package trace

// nopSink is a no-op implementation for zero overhead when output is disabled.
type nopSink struct{}

// Emit does nothing.
func (nopSink) Emit(*Event) error { return nil }

// Flush does nothing.
func (nopSink) Flush() error { return nil }

// Close does nothing.
func (nopSink) Close() error { return nil }

// Nop is the package-level singleton nop sink.
var Nop Sink = nopSink{}
