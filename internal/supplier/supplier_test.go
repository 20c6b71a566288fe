package supplier

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type base struct{}

func (base) Describe() string { return "base" }

type account struct {
	base
	balance int
}

func (a account) Balance() int { return a.balance }

func (a *account) Deposit(n int) { a.balance += n }

func (a account) String() string { return fmt.Sprint(a.balance) }

func (a account) Format(f fmt.State, verb rune) { fmt.Fprint(f, a.balance) }

func (a *account) Error() string { return "account" }

func names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestMethodsSkipsSelfRepresentationAndPromoted(t *testing.T) {
	for _, typ := range []reflect.Type{reflect.TypeOf(account{}), reflect.TypeOf(&account{})} {
		got := Methods(typ, true)
		require.Equal(t, []string{"Balance", "Deposit"}, names(got), "for %v", typ)
	}
}

func TestMethodsAreCallableExpressions(t *testing.T) {
	got := Methods(reflect.TypeOf(account{}), false)
	require.Len(t, got, 2)

	balance, ok := got[0].Value.(func(account) int)
	require.True(t, ok)
	require.Equal(t, 7, balance(account{balance: 7}))

	deposit, ok := got[1].Value.(func(*account, int))
	require.True(t, ok)
	a := &account{}
	deposit(a, 3)
	require.Equal(t, 3, a.balance)
}

func TestMethodsOfNothing(t *testing.T) {
	require.Nil(t, Methods(nil, false))
	require.Empty(t, Methods(reflect.TypeOf((*fmt.Stringer)(nil)).Elem(), true))
}

func TestNamespace(t *testing.T) {
	ns := map[string]any{
		"Add":    func(a, b int) int { return a + b },
		"helper": func() {},
		"_priv":  func() {},
		"String": func() string { return "" },
		"Limit":  42,
		"Acct":   &account{},
		"Nil":    nil,
	}

	require.Equal(t, []string{"Acct", "Add"}, names(Namespace(ns, false)))
	require.Equal(t, []string{"Acct", "Add", "_priv", "helper"}, names(Namespace(ns, true)))
}

func TestHidden(t *testing.T) {
	require.True(t, Hidden("_x"))
	require.True(t, Hidden("x"))
	require.False(t, Hidden("X"))
	require.True(t, Excluded("GoString"))
	require.False(t, Excluded("Strings"))
}
