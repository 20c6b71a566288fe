package fntrace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fntrace/internal/interceptor"
	"fntrace/internal/log"
	"fntrace/internal/metrics"
	"fntrace/internal/patch"
	"fntrace/internal/registry"
	"fntrace/internal/trace"
)

// ErrSessionActive is returned by Start while another session is running.
// Sessions do not nest.
var ErrSessionActive = errors.New("fntrace: a session is already active")

// Session is one attached tracing run.
type Session struct {
	id      string
	reg     *registry.Registry
	in      *interceptor.Interceptor
	handle  *interceptor.Handle
	sink    trace.Sink
	ring    *trace.RingSink
	patches *patch.Table
	ownSink bool

	stopOnce sync.Once
	stopErr  error
}

// Start registers targets, opens the sink and attaches the interceptor.
//
// Targets are function values, method values or expressions, Instance,
// Limit, Namespace, Methods and Patch values. Candidates that cannot be
// traced are skipped and logged at debug level.
func Start(targets []any, opts ...Option) (*Session, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	if interceptor.Current() != nil {
		return nil, ErrSessionActive
	}

	id := uuid.NewString()
	logger := log.OrDiscard(s.engine.Logger).With("session", id)
	s.engine.Logger = logger

	reg := registry.New(registry.WithDepthOverrides(s.depths))
	x := &expander{reg: reg, patches: &patch.Table{}, includeHidden: s.includeHidden}
	for _, t := range targets {
		x.add(t)
	}
	if err := x.skippedErr(); err != nil {
		logger.Debug("skipping targets", "error", err)
	}

	if s.metrics != nil {
		m, err := metrics.NewPrometheus(s.metrics)
		if err != nil {
			return nil, err
		}
		s.engine.Metrics = m
	}

	sink, ownSink := s.custom, false
	if sink == nil {
		s.sink.Session = id
		var err error
		if sink, err = trace.New(s.sink); err != nil {
			return nil, fmt.Errorf("fntrace: opening sink: %w", err)
		}
		ownSink = true
	}
	ring, _ := sink.(*trace.RingSink)
	if s.tail > 0 && ring == nil {
		ring = trace.NewRingSink(s.tail)
		sink = trace.NewMultiSink(sink, ring)
	}

	in := interceptor.New(reg, sink, s.engine)
	handle, err := in.Attach()
	if err != nil {
		if ownSink {
			_ = sink.Close()
		}
		if errors.Is(err, interceptor.ErrAlreadyAttached) {
			return nil, ErrSessionActive
		}
		return nil, err
	}
	if err := x.patches.Apply(); err != nil {
		handle.Detach()
		if ownSink {
			_ = sink.Close()
		}
		return nil, err
	}

	logger.Debug("session started", "targets", reg.Len(), "patches", x.patches.Len())
	return &Session{
		id:      id,
		reg:     reg,
		in:      in,
		handle:  handle,
		sink:    sink,
		ring:    ring,
		patches: x.patches,
		ownSink: ownSink,
	}, nil
}

// ID returns the session's unique id, also written into record headers.
func (s *Session) ID() string {
	return s.id
}

// Targets returns the display names of the registered targets.
func (s *Session) Targets() []string {
	ts := s.reg.Targets()
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// Events returns the events held in memory (WithRing or WithTail), oldest
// first. Without either it returns nil.
func (s *Session) Events() []Event {
	if s.ring == nil {
		return nil
	}
	return s.ring.Snapshot()
}

// Stop detaches the interceptor, restores patched variables in reverse order
// and closes the sink. It returns the error that aborted the session, if any,
// or the first flush/close error. Later calls return the same result.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.handle.Detach()
		s.patches.Revert()

		err := s.in.Err()
		if flushErr := s.sink.Flush(); err == nil {
			err = flushErr
		}
		if s.ownSink {
			if closeErr := s.sink.Close(); err == nil {
				err = closeErr
			}
		}
		s.stopErr = err
	})
	return s.stopErr
}

// Trace runs fn inside a session and stops it on every exit path. A panic
// from fn propagates after the session is stopped.
func Trace(targets []any, fn func(), opts ...Option) (err error) {
	s, err := Start(targets, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := s.Stop(); err == nil {
			err = stopErr
		}
	}()
	fn()
	return nil
}
