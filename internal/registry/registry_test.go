package registry

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func add(a, b int) int { return a + b }

func fact(n int) int {
	if n <= 1 {
		return 1
	}
	return n * fact(n-1)
}

type counter struct{ n int }

func (c *counter) Inc() int { c.n++; return c.n }

func (c counter) Value() int { return c.n }

func (c *counter) Call() int { return c.Inc() }

func (c *counter) Reset() { c.n = 0 }

func (c counter) String() string { return "counter" }

type plain struct{}

func (plain) Nothing() {}

func TestRegisterFunction(t *testing.T) {
	r := New()
	tgt, err := r.Register(add)
	require.NoError(t, err)
	require.Equal(t, "registry.add", tgt.Name)
	require.True(t, strings.HasSuffix(tgt.Symbol, "internal/registry.add"))
	require.False(t, tgt.Limited)

	got, ok := r.Lookup(FuncIdentity(tgt.Symbol))
	require.True(t, ok)
	require.Equal(t, tgt, got)
}

func TestRegisterIdentityIsStable(t *testing.T) {
	r := New()
	a, err := r.Register(fact)
	require.NoError(t, err)
	b, err := r.Register(fact)
	require.NoError(t, err)
	require.Equal(t, a.Identity, b.Identity)
	require.Equal(t, 1, r.Len())
}

func TestRegisterBoundMethodResolvesToBody(t *testing.T) {
	c1, c2 := &counter{}, &counter{}
	r := New()
	m1, err := r.Register(c1.Inc)
	require.NoError(t, err)
	m2, err := r.Register(c2.Inc)
	require.NoError(t, err)

	require.Equal(t, m1.Identity, m2.Identity, "bound wrappers of one method share the body identity")
	require.False(t, strings.HasSuffix(m1.Symbol, "-fm"))
	require.Equal(t, "registry.(*counter).Inc", m1.Name)

	expr, err := r.Register((*counter).Inc)
	require.NoError(t, err)
	require.Equal(t, m1.Identity, expr.Identity)
}

func TestRegisterBoundValueMethod(t *testing.T) {
	c := &counter{}
	r := New()
	bound, err := r.Register(c.Value)
	require.NoError(t, err)
	expr, err := r.Register(counter.Value)
	require.NoError(t, err)
	require.Equal(t, "registry.counter.Value", bound.Name)
	require.Equal(t, expr.Identity, bound.Identity)

	// the pointer-receiver wrapper rewrite must not apply to bound values
	inc, err := r.Register(c.Inc)
	require.NoError(t, err)
	require.Equal(t, "registry.(*counter).Inc", inc.Name)
}

func TestRegisterValueMethodViaPointerExpression(t *testing.T) {
	r := New()
	viaValue, err := r.Register(counter.Value)
	require.NoError(t, err)
	viaPointer, err := r.Register((*counter).Value)
	require.NoError(t, err)
	require.Equal(t, "registry.counter.Value", viaValue.Name)
	require.Equal(t, viaValue.Identity, viaPointer.Identity)
}

func TestRegisterOperatorInstance(t *testing.T) {
	c1, c2 := &counter{}, &counter{}
	r := New()
	t1, err := r.Register(c1)
	require.NoError(t, err)
	t2, err := r.Register(c2)
	require.NoError(t, err)
	require.NotEqual(t, t1.Identity, t2.Identity, "each instance is a distinct callable")
	require.Equal(t, "registry.(*counter).Call", t1.Name)

	id, ok := InstanceIdentity(c1)
	require.True(t, ok)
	_, ok = r.Lookup(id)
	require.True(t, ok)

	require.True(t, r.HasOperatorType(reflect.TypeOf(c1)))
	require.False(t, r.HasOperatorType(reflect.TypeOf(&plain{})))
}

func TestRegisterRejectsShapelessCandidates(t *testing.T) {
	r := New()
	var nilFn func()
	cases := []any{nil, 42, "name", plain{}, &plain{}, nilFn, counter{}}
	for _, c := range cases {
		_, err := r.Register(c)
		var re *ResolutionError
		require.True(t, errors.As(err, &re), "candidate %#v", c)
	}
	require.Zero(t, r.Len())
}

func TestRegisterDepth(t *testing.T) {
	r := New()
	tgt, err := r.Register(add, WithDepth(2))
	require.NoError(t, err)
	require.True(t, tgt.Limited)
	require.Equal(t, 2, tgt.AdditionalDepth)

	_, err = r.Register(fact, WithDepth(-1))
	require.Error(t, err)
}

func TestRegisterLimitedWinsOverUnlimited(t *testing.T) {
	r := New()
	_, err := r.Register(add)
	require.NoError(t, err)
	tgt, err := r.Register(add, WithDepth(0))
	require.NoError(t, err)
	require.True(t, tgt.Limited)

	again, err := r.Register(add)
	require.NoError(t, err)
	require.True(t, again.Limited)
	require.Equal(t, 1, r.Len())
}

func TestDepthOverrides(t *testing.T) {
	r := New(WithDepthOverrides(map[string]int{"registry.add": 3}))
	tgt, err := r.Register(add, WithDepth(1))
	require.NoError(t, err)
	require.Equal(t, 3, tgt.AdditionalDepth)
}

func TestFreeze(t *testing.T) {
	r := New()
	r.Freeze()
	require.True(t, r.Frozen())
	_, err := r.Register(add)
	require.ErrorIs(t, err, ErrFrozen)
}

func TestWithOperators(t *testing.T) {
	r := New(WithOperators("Reset"))
	tgt, err := r.Register(&counter{})
	require.NoError(t, err)
	require.Equal(t, "registry.(*counter).Reset", tgt.Name)
}

func TestSymbolHelpers(t *testing.T) {
	require.Equal(t, "calc.(*T).M", ShortName("example.com/x/calc.(*T).M"))
	require.Equal(t, "main.f", ShortName("main.f"))
	require.Equal(t, "pkg.(*T).M", CanonicalSymbol("pkg.(*T).M-fm"))

	body, ok := pointerWrapperBody("example.com/pkg.(*T).M")
	require.True(t, ok)
	require.Equal(t, "example.com/pkg.T.M", body)
	_, ok = pointerWrapperBody("pkg.f")
	require.False(t, ok)

	require.True(t, Identity{}.IsZero())
	require.False(t, FuncIdentity("pkg.f").IsZero())
}
