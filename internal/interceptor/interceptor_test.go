package interceptor

import (
	"bytes"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"fntrace/internal/callstack"
	"fntrace/internal/depth"
	"fntrace/internal/registry"
	"fntrace/internal/trace"

	"github.com/stretchr/testify/require"
)

// call is a minimal call marker: defer mark(args...).done(&results...).
type call struct {
	in   *Interceptor
	gid  uint64
	link callstack.Link
}

func mark(args ...any) *call {
	return enter(nil, args)
}

func markOn(recv any, args ...any) *call {
	return enter(recv, args)
}

func enter(recv any, args []any) *call {
	in := Current()
	if in == nil {
		return nil
	}
	pc, _, _, _ := runtime.Caller(2)
	gid := trace.GoroutineID()
	link := in.Call(CallBoundary{GID: gid, Func: runtime.FuncForPC(pc).Name(), Recv: recv, Args: args})
	if link == 0 {
		return nil
	}
	return &call{in: in, gid: gid, link: link}
}

func (c *call) done(results ...any) {
	if c == nil {
		return
	}
	if r := recover(); r != nil {
		c.in.Exception(c.gid, c.link, r)
		c.in.Return(c.gid, c.link, nil)
		panic(r)
	}
	vals := make([]any, len(results))
	for i, p := range results {
		vals[i] = reflect.ValueOf(p).Elem().Interface()
	}
	c.in.Return(c.gid, c.link, vals)
}

func add(a, b int) (r int) {
	defer mark(a, b).done(&r)
	return a + b
}

func fact(n int) (r int) {
	defer mark(n).done(&r)
	if n <= 1 {
		return 1
	}
	return n * fact(n-1)
}

func g() (r int) {
	defer mark().done(&r)
	return h() + 1
}

func h() (r int) {
	defer mark().done(&r)
	return 1
}

func k() (r int) {
	defer mark().done(&r)
	return g() * 10
}

func div(a, b int) (r int) {
	defer mark(a, b).done(&r)
	return a / b
}

func safeDiv(a, b int) (r int, err error) {
	defer mark(a, b).done(&r, &err)
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("division failed")
		}
	}()
	return div(a, b), nil
}

type op struct{ factor int }

func (o *op) Call(x int) (r int) {
	defer markOn(o, x).done(&r)
	return x * o.factor
}

type env struct {
	in     *Interceptor
	ring   *trace.RingSink
	handle *Handle
	errs   []error
}

func setup(t *testing.T, opts Options, targets ...any) *env {
	t.Helper()
	return setupSink(t, trace.NewRingSink(1024), opts, targets...)
}

func setupSink(t *testing.T, sink trace.Sink, opts Options, targets ...any) *env {
	t.Helper()
	reg := registry.New()
	for _, tg := range targets {
		var err error
		if l, ok := tg.(limited); ok {
			_, err = reg.Register(l.fn, registry.WithDepth(l.d))
		} else {
			_, err = reg.Register(tg)
		}
		require.NoError(t, err)
	}

	e := &env{}
	if opts.OnError == nil {
		var mu sync.Mutex
		opts.OnError = func(err error) {
			mu.Lock()
			defer mu.Unlock()
			e.errs = append(e.errs, err)
		}
	}
	e.in = New(reg, sink, opts)
	e.ring, _ = sink.(*trace.RingSink)

	h, err := e.in.Attach()
	require.NoError(t, err)
	e.handle = h
	t.Cleanup(h.Detach)
	return e
}

type limited struct {
	fn any
	d  int
}

func (e *env) text(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.ring.Dump(&buf, nil))
	return buf.String()
}

func TestScenarioA(t *testing.T) {
	e := setup(t, DefaultOptions(), add)

	require.Equal(t, 5, add(2, 3))
	require.Equal(t, "- interceptor.add(2, 3)\n-> 5\n", e.text(t))
}

func TestScenarioBZeroDepthHidesCallees(t *testing.T) {
	e := setup(t, DefaultOptions(), limited{g, 0}, h)

	require.Equal(t, 2, g())
	require.Equal(t, "- interceptor.g()\n-> 2\n", e.text(t))

	// h on its own is still traced once g is off the stack
	require.Equal(t, 1, h())
	require.Equal(t, "- interceptor.g()\n-> 2\n- interceptor.h()\n-> 1\n", e.text(t))
}

func TestDepthOneShowsDirectChildrenOnly(t *testing.T) {
	e := setup(t, DefaultOptions(), limited{k, 1}, g, h)

	require.Equal(t, 20, k())
	require.Equal(t,
		"- interceptor.k()\n"+
			"|   - interceptor.g()\n"+
			"|   -> 2\n"+
			"-> 20\n", e.text(t))
}

func TestUnlimitedNestsEverything(t *testing.T) {
	e := setup(t, DefaultOptions(), k, g, h)

	k()
	require.Equal(t,
		"- interceptor.k()\n"+
			"|   - interceptor.g()\n"+
			"|   |   - interceptor.h()\n"+
			"|   |   -> 1\n"+
			"|   -> 2\n"+
			"-> 20\n", e.text(t))
}

func TestMaxDepth(t *testing.T) {
	e := setup(t, Options{MaxDepth: 1}, k, g, h)

	k()
	require.Equal(t, "- interceptor.k()\n-> 20\n", e.text(t))
}

func TestRecursionLevels(t *testing.T) {
	e := setup(t, DefaultOptions(), fact)

	require.Equal(t, 24, fact(4))
	events := e.ring.Snapshot()
	require.NoError(t, trace.CheckNesting(events))

	var levels []int
	for _, ev := range events {
		levels = append(levels, ev.Level)
	}
	require.Equal(t, []int{0, 1, 2, 3, 3, 2, 1, 0}, levels)
	require.Equal(t, []any{1}, events[4].Results)
	require.Equal(t, []any{24}, events[7].Results)
}

func TestExceptionEmittedExactlyOnce(t *testing.T) {
	e := setup(t, DefaultOptions(), div, safeDiv)

	r, err := safeDiv(1, 0)
	require.Error(t, err)
	require.Zero(t, r)

	events := e.ring.Snapshot()
	require.NoError(t, trace.CheckNesting(events))
	require.Len(t, events, 4)
	require.Equal(t, trace.KindEnter, events[1].Kind)
	require.Equal(t, trace.KindException, events[2].Kind)
	require.Equal(t, 1, events[2].Level)
	_, isRuntime := events[2].Panic.(runtime.Error)
	require.True(t, isRuntime)
	require.Equal(t, trace.KindExit, events[3].Kind)
	require.Len(t, events[3].Results, 2)
	require.Equal(t, 0, e.in.Live())
}

func TestPanicPropagatesUnchanged(t *testing.T) {
	e := setup(t, DefaultOptions(), div)

	require.PanicsWithError(t, "runtime error: integer divide by zero", func() { div(1, 0) })
	events := e.ring.Snapshot()
	require.Len(t, events, 2)
	require.Equal(t, trace.KindException, events[1].Kind)
}

func TestTeardown(t *testing.T) {
	e := setup(t, DefaultOptions(), add)
	add(1, 1)
	e.handle.Detach()
	e.handle.Detach()

	require.Nil(t, Current())
	add(2, 2)
	require.Len(t, e.ring.Snapshot(), 2)
}

func TestTeardownAfterPanic(t *testing.T) {
	e := setup(t, DefaultOptions(), div)
	func() {
		defer e.handle.Detach()
		defer func() { _ = recover() }()
		div(1, 0)
	}()
	require.Nil(t, Current())
	require.Equal(t, 0, e.in.Live())
}

func TestAttachRejectsSecondInterceptor(t *testing.T) {
	setup(t, DefaultOptions(), add)

	other := New(registry.New(), nil, DefaultOptions())
	_, err := other.Attach()
	require.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestOperatorInstances(t *testing.T) {
	traced, untraced := &op{factor: 2}, &op{factor: 3}
	e := setup(t, Options{MaxDepth: -1, OnAmbiguous: AmbiguityReport}, traced)

	require.Equal(t, 4, traced.Call(2))
	require.Equal(t, 6, untraced.Call(2))
	require.Equal(t, "- interceptor.(*op).Call(2)\n-> 4\n", e.text(t))

	require.Len(t, e.errs, 1)
	var amb *AmbiguityError
	require.ErrorAs(t, e.errs[0], &amb)
	require.Equal(t, reflect.TypeOf(untraced), amb.Recv)
}

func TestAmbiguityIgnoredByDefault(t *testing.T) {
	traced, untraced := &op{factor: 2}, &op{factor: 3}
	e := setup(t, DefaultOptions(), traced)

	untraced.Call(1)
	require.Empty(t, e.errs)
	require.Empty(t, e.ring.Snapshot())
}

func TestConcurrentGoroutinesKeepSeparateStacks(t *testing.T) {
	e := setup(t, DefaultOptions(), fact)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fact(5)
		}()
	}
	wg.Wait()

	events := e.ring.Snapshot()
	require.Len(t, events, 8*10)
	require.NoError(t, trace.CheckNesting(events))
	require.Equal(t, 0, e.in.Live())
}

// flakySink fails every event of kind fail and records the rest.
type flakySink struct {
	mu     sync.Mutex
	fail   trace.Kind
	panics bool
	events []trace.Event
}

func (s *flakySink) Emit(ev *trace.Event) error {
	if ev.Kind == s.fail {
		if s.panics {
			panic("formatter exploded")
		}
		return errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

func (s *flakySink) Flush() error { return nil }

func (s *flakySink) Close() error { return nil }

func TestSinkErrorDropSilencesFrame(t *testing.T) {
	sink := &flakySink{fail: trace.KindEnter}
	e := setupSink(t, sink, DefaultOptions(), add)

	require.Equal(t, 3, add(1, 2))
	require.Empty(t, sink.events, "exit of a frame whose enter was lost is not written")
	require.Len(t, e.errs, 1)
	require.True(t, e.in.Active())
	require.NoError(t, e.in.Err())
}

func TestSinkErrorAbortDetaches(t *testing.T) {
	sink := &flakySink{fail: trace.KindExit}
	e := setupSink(t, sink, Options{MaxDepth: -1, OnSinkError: SinkErrorAbort}, add)

	require.Equal(t, 3, add(1, 2))
	require.EqualError(t, e.in.Err(), "disk full")
	require.False(t, e.in.Active())
	require.Nil(t, Current())

	add(1, 2)
	require.Len(t, sink.events, 1)
}

func TestInternalFaultIsSwallowed(t *testing.T) {
	sink := &flakySink{fail: trace.KindEnter, panics: true}
	e := setupSink(t, sink, DefaultOptions(), add)

	require.Equal(t, 3, add(1, 2))
	require.Len(t, e.errs, 1)
	var ie *InternalError
	require.ErrorAs(t, e.errs[0], &ie)
	require.Equal(t, "emit", ie.Op)
	require.Equal(t, 0, e.in.Live())
}

func TestStrictModeRepanics(t *testing.T) {
	sink := &flakySink{fail: trace.KindEnter, panics: true}
	setupSink(t, sink, Options{MaxDepth: -1, Strict: true}, add)

	ie := catchInternal(t, func() { add(1, 2) })
	require.Equal(t, "emit", ie.Op)
	require.Equal(t, "formatter exploded", ie.Value)
}

func TestStrictModeChecksCeilings(t *testing.T) {
	e := setup(t, Options{MaxDepth: -1, Strict: true}, limited{k, 1}, g, h)

	// consistent ceilings pass the check on every pop
	require.Equal(t, 20, k())
	require.Equal(t, 0, e.in.Live())

	gid := trace.GoroutineID()
	st := e.in.stacks.Get(gid)
	const link = callstack.Link(1 << 40)
	st.Push(callstack.Frame{
		Link:       link,
		Constraint: depth.Constraint{Additional: 1, Limited: true},
		Ceiling:    depth.Unbounded,
	})
	t.Cleanup(func() { st.Pop() })

	ie := catchInternal(t, func() { e.in.Return(gid, link, nil) })
	require.Equal(t, "ceiling", ie.Op)
	require.Equal(t, "stored inf, recomputed 2", ie.Value)
}

// catchInternal runs f and returns the *InternalError it panics with.
func catchInternal(t *testing.T, f func()) (ie *InternalError) {
	t.Helper()
	defer func() {
		r := recover()
		var ok bool
		ie, ok = r.(*InternalError)
		require.True(t, ok, "recovered %v", r)
	}()
	f()
	return nil
}

func TestProxyFrameAbsorbsBodyMarker(t *testing.T) {
	e := setup(t, DefaultOptions(), add)
	gid := trace.GoroutineID()

	link := e.in.Call(CallBoundary{GID: gid, Func: funcName(add), Args: []any{2, 3}, Proxy: true})
	require.NotZero(t, link)
	require.Equal(t, 5, add(2, 3))
	e.in.Return(gid, link, []any{5})
	require.Equal(t, "- interceptor.add(2, 3)\n-> 5\n", e.text(t))
	require.Equal(t, 0, e.in.Live())
}

func TestProxyFrameNestsRecursiveBody(t *testing.T) {
	e := setup(t, DefaultOptions(), fact)
	gid := trace.GoroutineID()

	link := e.in.Call(CallBoundary{GID: gid, Func: funcName(fact), Args: []any{3}, Proxy: true})
	require.Equal(t, 6, fact(3))
	e.in.Return(gid, link, []any{6})
	require.Equal(t,
		"- interceptor.fact(3)\n"+
			"|   - interceptor.fact(2)\n"+
			"|   |   - interceptor.fact(1)\n"+
			"|   |   -> 1\n"+
			"|   -> 2\n"+
			"-> 6\n", e.text(t))
}

func funcName(fn any) string {
	return runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
}

func TestPolicyParsing(t *testing.T) {
	p, err := ParseSinkErrorPolicy("abort")
	require.NoError(t, err)
	require.Equal(t, SinkErrorAbort, p)
	_, err = ParseSinkErrorPolicy("retry")
	require.Error(t, err)

	a, err := ParseAmbiguityPolicy("raise")
	require.NoError(t, err)
	require.Equal(t, AmbiguityReport, a)
	require.Equal(t, "report", a.String())
}
