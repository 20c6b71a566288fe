// Package interceptor is the call-interception engine. Boundary sources
// report every call, return and exception they observe; the interceptor keeps
// the ones that belong to registered targets, tracks them on per-goroutine
// stacks, applies depth ceilings and emits trace events to a sink.
//
// All entry points run synchronously on the goroutine that crossed the
// boundary. Untracked boundaries cost one map lookup (Call) or one integer
// comparison (Return, Exception with a zero link).
package interceptor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"fntrace/internal/callstack"
	"fntrace/internal/depth"
	"fntrace/internal/log"
	"fntrace/internal/metrics"
	"fntrace/internal/registry"
	"fntrace/internal/trace"
)

// Options configures an Interceptor.
type Options struct {
	MaxDepth    int // levels emitted at most; negative means unbounded
	Strict      bool // re-panic internal faults and check ceilings on every pop
	OnSinkError SinkErrorPolicy
	OnAmbiguous AmbiguityPolicy
	Logger      *slog.Logger
	Metrics     metrics.Recorder
	// OnError additionally receives every reported error.
	OnError func(error)
}

// DefaultOptions returns unbounded depth with the drop and ignore policies.
func DefaultOptions() Options {
	return Options{MaxDepth: -1}
}

// Interceptor matches boundaries against a frozen registry.
type Interceptor struct {
	reg     *registry.Registry
	sink    trace.Sink
	limiter *depth.Limiter
	stacks  *callstack.Table
	opts    Options
	logger  *slog.Logger
	metrics metrics.Recorder

	active   atomic.Bool
	links    atomic.Uint64
	dropOnce sync.Once

	mu      sync.Mutex
	failure error
}

// CallBoundary describes one call crossing.
type CallBoundary struct {
	GID  uint64 // crossing goroutine; 0 resolves the current one
	Func string // runtime symbol of the callee body
	Recv any    // receiver, for operator-invoked instances
	Args []any
	// Proxy is set by forwarding proxies. A marker call nested directly in a
	// proxy frame of the same target is the same invocation.
	Proxy bool
}

// New creates an interceptor. The registry is frozen on Attach.
func New(reg *registry.Registry, sink trace.Sink, opts Options) *Interceptor {
	if sink == nil {
		sink = trace.Nop
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Nop
	}
	return &Interceptor{
		reg:     reg,
		sink:    sink,
		limiter: depth.NewLimiter(opts.MaxDepth),
		stacks:  callstack.NewTable(),
		opts:    opts,
		logger:  log.OrDiscard(opts.Logger),
		metrics: m,
	}
}

// Active reports whether the interceptor is attached and has not aborted.
func (in *Interceptor) Active() bool {
	return in.active.Load()
}

// Err returns the error that aborted the interceptor, if any.
func (in *Interceptor) Err() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.failure
}

// Sink returns the sink events are emitted to.
func (in *Interceptor) Sink() trace.Sink {
	return in.sink
}

// Live returns the number of goroutines with traced frames in flight.
func (in *Interceptor) Live() int {
	return in.stacks.Len()
}

// Call handles a call boundary and returns the link the matching Return or
// Exception must carry. Zero means the call is not traced.
func (in *Interceptor) Call(b CallBoundary) (link callstack.Link) {
	if !in.active.Load() {
		return 0
	}
	in.metrics.Boundary(trace.KindEnter.String())
	target, ok := in.reg.Lookup(registry.FuncIdentity(b.Func))
	if !ok {
		if b.Recv == nil {
			return 0
		}
		if target, ok = in.matchInstance(b); !ok {
			return 0
		}
	}
	defer in.recoverInternal("call")

	gid := b.GID
	if gid == 0 {
		gid = trace.GoroutineID()
	}
	st := in.stacks.Get(gid)
	if !b.Proxy && st.AbsorbBody(target.Identity) {
		return 0
	}
	in.metrics.Matched()
	level := st.Depth()
	parent := st.Ceiling(in.limiter.Root())
	c := depth.Constraint{Level: level, Additional: target.AdditionalDepth, Limited: target.Limited}

	link = callstack.Link(in.links.Add(1))
	frame := callstack.Frame{
		Link:       link,
		Target:     target,
		Level:      level,
		Constraint: c,
		Ceiling:    in.limiter.Descend(parent, c),
		Emitting:   in.limiter.Admit(level, parent),
		Proxy:      b.Proxy,
	}
	// pushed before emitting so a failing sink still leaves the stack paired
	st.Push(frame)

	if !frame.Emitting {
		in.metrics.Dropped(metrics.ReasonDepth)
		return link
	}
	ev := &trace.Event{
		Seq:   trace.NextSeq(),
		GID:   gid,
		Kind:  trace.KindEnter,
		Level: level,
		Name:  target.Name,
		Args:  b.Args,
	}
	if !in.emit(ev) {
		st.Silence()
	}
	return link
}

func (in *Interceptor) matchInstance(b CallBoundary) (registry.Target, bool) {
	id, ok := registry.InstanceIdentity(b.Recv)
	if ok {
		if t, found := in.reg.Lookup(id); found {
			return t, true
		}
		if !in.reg.HasOperatorType(id.Recv) {
			return registry.Target{}, false
		}
	}
	if in.opts.OnAmbiguous == AmbiguityReport {
		in.metrics.Dropped(metrics.ReasonAmbiguous)
		amb := &AmbiguityError{Func: b.Func}
		if ok {
			amb.Recv = id.Recv
		}
		in.report(amb)
	}
	return registry.Target{}, false
}

// Return handles a normal return boundary.
func (in *Interceptor) Return(gid uint64, link callstack.Link, results []any) {
	if link == 0 {
		return
	}
	in.finish(gid, link, trace.KindExit, results, nil)
}

// Exception handles a panic unwinding through a traced call. The return
// boundary that follows for the same link is suppressed.
func (in *Interceptor) Exception(gid uint64, link callstack.Link, value any) {
	if link == 0 {
		return
	}
	in.finish(gid, link, trace.KindException, nil, value)
}

func (in *Interceptor) finish(gid uint64, link callstack.Link, kind trace.Kind, results []any, value any) {
	if !in.active.Load() {
		return
	}
	in.metrics.Boundary(kind.String())
	defer in.recoverInternal(kind.String())

	if gid == 0 {
		gid = trace.GoroutineID()
	}
	st, ok := in.stacks.Lookup(gid)
	if !ok {
		return
	}
	defer in.stacks.Release(st)

	if kind == trace.KindExit && st.TakeUnwound(link) {
		return
	}
	if !st.Matches(link) {
		in.logger.Debug("unmatched boundary", "kind", kind, "gid", gid, "link", uint64(link))
		return
	}
	if in.opts.Strict {
		in.checkCeiling(st)
	}
	frame, _ := st.Pop()
	if kind == trace.KindException {
		st.MarkUnwound(link)
	}
	if !frame.Emitting {
		return
	}

	ev := &trace.Event{
		Seq:     trace.NextSeq(),
		GID:     gid,
		Kind:    kind,
		Level:   frame.Level,
		Name:    frame.Target.Name,
		Results: results,
		Panic:   value,
	}
	in.emit(ev)
}

// checkCeiling compares the ceiling stored on the top frame with the one
// recomputed from every live constraint.
func (in *Interceptor) checkCeiling(st *callstack.Stack) {
	want := in.limiter.Recompute(st.Constraints())
	if got := st.Ceiling(in.limiter.Root()); got != want {
		panic(&InternalError{Op: "ceiling", Value: fmt.Sprintf("stored %v, recomputed %v", got, want)})
	}
}

// emit writes ev and reports whether it reached the sink.
func (in *Interceptor) emit(ev *trace.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			in.internal("emit", r)
		}
	}()

	if err := in.sink.Emit(ev); err != nil {
		in.sinkFailed(err)
		return false
	}
	in.metrics.Emitted(ev.Kind.String())
	return true
}

func (in *Interceptor) sinkFailed(err error) {
	in.metrics.Dropped(metrics.ReasonSinkError)
	if in.opts.OnSinkError == SinkErrorAbort {
		in.abort(err)
		return
	}
	in.dropOnce.Do(func() {
		in.logger.Warn("trace write failed; dropping events", "error", err)
	})
	if in.opts.OnError != nil {
		in.opts.OnError(err)
	}
}

func (in *Interceptor) abort(err error) {
	in.mu.Lock()
	first := in.failure == nil
	if first {
		in.failure = err
	}
	in.mu.Unlock()
	if first {
		in.logger.Error("trace write failed; aborting session", "error", err)
		in.report(err)
	}
	in.detach()
}

func (in *Interceptor) recoverInternal(op string) {
	if r := recover(); r != nil {
		in.internal(op, r)
	}
}

func (in *Interceptor) internal(op string, r any) {
	in.metrics.Dropped(metrics.ReasonInternal)
	ie, nested := r.(*InternalError)
	if !nested {
		ie = &InternalError{Op: op, Value: r}
	}
	if in.opts.Strict {
		panic(ie)
	}
	in.logger.Error("internal trace fault", "op", op, "value", r)
	in.report(ie)
}

func (in *Interceptor) report(err error) {
	var amb *AmbiguityError
	if errors.As(err, &amb) {
		in.logger.Warn("ambiguous call boundary", "error", err)
	}
	if in.opts.OnError != nil {
		in.opts.OnError(err)
	}
}
