package registry

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// DefaultOperators are the method names through which an instance counts as
// being invoked like a function.
var DefaultOperators = []string{"Call", "Invoke", "ServeHTTP"}

// Target is one registered callable.
type Target struct {
	Identity        Identity
	Name            string // display name, e.g. "calc.Add"
	Symbol          string // full runtime symbol
	AdditionalDepth int    // valid iff Limited
	Limited         bool
}

// Registry maps callables to stable identities. It is built once per session
// and frozen before boundaries are matched; lookups after Freeze take no lock.
type Registry struct {
	mu        sync.Mutex
	frozen    atomic.Bool
	targets   map[Identity]Target
	order     []Identity
	keep      []any // operator instances stay reachable while registered
	recvTypes map[reflect.Type]struct{}
	operators []string
	depths    map[string]int
}

// Option configures a Registry.
type Option func(*Registry)

// WithOperators replaces the operator method names.
func WithOperators(names ...string) Option {
	return func(r *Registry) {
		r.operators = append([]string(nil), names...)
	}
}

// WithDepthOverrides sets additional depths keyed by display name or full symbol.
// An override wins over a depth given at registration.
func WithDepthOverrides(depths map[string]int) Option {
	return func(r *Registry) {
		for k, v := range depths {
			r.depths[k] = v
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		targets:   make(map[Identity]Target),
		operators: DefaultOperators,
		depths:    make(map[string]int),
		recvTypes: make(map[reflect.Type]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type registerConfig struct {
	depth   int
	limited bool
	name    string
}

// RegisterOption configures one registration.
type RegisterOption func(*registerConfig)

// WithDepth limits how many levels beneath the target stay visible.
func WithDepth(additional int) RegisterOption {
	return func(c *registerConfig) {
		c.depth = additional
		c.limited = true
	}
}

// WithName overrides the display name.
func WithName(name string) RegisterOption {
	return func(c *registerConfig) {
		c.name = name
	}
}

// Register resolves candidate to a Target and records it.
// Candidates with no matchable shape yield a *ResolutionError and are not recorded.
func (r *Registry) Register(candidate any, opts ...RegisterOption) (Target, error) {
	if r.frozen.Load() {
		return Target{}, ErrFrozen
	}
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limited && cfg.depth < 0 {
		return Target{}, &ResolutionError{Candidate: describe(candidate), Reason: fmt.Sprintf("negative additional depth %d", cfg.depth)}
	}

	t, instance, err := r.resolve(candidate)
	if err != nil {
		return Target{}, err
	}
	if cfg.name != "" {
		t.Name = cfg.name
	}
	t.AdditionalDepth, t.Limited = cfg.depth, cfg.limited
	if d, ok := r.depthOverride(t); ok {
		t.AdditionalDepth, t.Limited = d, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.targets[t.Identity]; ok {
		if prev.Limited || !t.Limited {
			return prev, nil
		}
		r.targets[t.Identity] = t
		return t, nil
	}
	r.targets[t.Identity] = t
	r.order = append(r.order, t.Identity)
	if instance != nil {
		r.keep = append(r.keep, instance)
		r.recvTypes[t.Identity.Recv] = struct{}{}
	}
	return t, nil
}

func (r *Registry) depthOverride(t Target) (int, bool) {
	if d, ok := r.depths[t.Symbol]; ok && d >= 0 {
		return d, true
	}
	if d, ok := r.depths[t.Name]; ok && d >= 0 {
		return d, true
	}
	return 0, false
}

func (r *Registry) resolve(candidate any) (Target, any, error) {
	if candidate == nil {
		return Target{}, nil, &ResolutionError{Candidate: "nil", Reason: "nil candidate"}
	}
	rv := reflect.ValueOf(candidate)
	if rv.Kind() == reflect.Func {
		t, err := resolveFunc(rv)
		return t, nil, err
	}
	t, err := r.resolveInstance(rv)
	if err != nil {
		return Target{}, nil, err
	}
	return t, candidate, nil
}

// BodySymbol returns the symbol a boundary inside fn's body reports, looking
// through method-value and pointer-receiver wrappers.
func BodySymbol(fn reflect.Value) (string, bool) {
	raw, file, ok := funcSymbol(fn)
	if !ok {
		return "", false
	}
	symbol := CanonicalSymbol(raw)
	// bound method values ("-fm") already name their body; only method
	// expressions on a pointer type forward to the value-receiver body
	if file == autogenerated && symbol == raw {
		if body, ok := pointerWrapperBody(symbol); ok {
			symbol = body
		}
	}
	return symbol, true
}

func resolveFunc(rv reflect.Value) (Target, error) {
	symbol, ok := BodySymbol(rv)
	if !ok {
		return Target{}, &ResolutionError{Candidate: rv.Type().String(), Reason: "nil or unresolvable func"}
	}
	return Target{
		Identity: Identity{Func: symbol},
		Name:     ShortName(symbol),
		Symbol:   symbol,
	}, nil
}

func (r *Registry) resolveInstance(rv reflect.Value) (Target, error) {
	typ := rv.Type()
	if rv.Kind() != reflect.Pointer {
		return Target{}, &ResolutionError{Candidate: typ.String(), Reason: "operator instances must be pointers"}
	}
	if rv.IsNil() {
		return Target{}, &ResolutionError{Candidate: typ.String(), Reason: "nil instance"}
	}
	for _, op := range r.operators {
		m, ok := typ.MethodByName(op)
		if !ok {
			continue
		}
		symbol, _, ok := funcSymbol(m.Func)
		if !ok {
			symbol = typ.String() + "." + op
		}
		return Target{
			Identity: Identity{Recv: typ, Inst: rv.Pointer()},
			Name:     ShortName(symbol),
			Symbol:   symbol,
		}, nil
	}
	return Target{}, &ResolutionError{Candidate: typ.String(), Reason: "not a function and declares no operator method"}
}

// Freeze ends registration. Lookups are safe from any goroutine afterwards.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Lookup is the identity-set membership test run on every call boundary.
func (r *Registry) Lookup(id Identity) (Target, bool) {
	t, ok := r.targets[id]
	return t, ok
}

// HasOperatorType reports whether some instance of typ is registered.
func (r *Registry) HasOperatorType(typ reflect.Type) bool {
	_, ok := r.recvTypes[typ]
	return ok
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.order)
}

// Targets returns the registered targets in registration order.
func (r *Registry) Targets() []Target {
	out := make([]Target, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.targets[id])
	}
	return out
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
