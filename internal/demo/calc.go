// Package demo holds small instrumented functions used by the fntrace
// command and its tests.
package demo

import (
	"errors"
	"fmt"

	"fntrace"
)

// Add returns a+b.
func Add(a, b int) (r int) {
	defer fntrace.Enter(a, b).Return(&r)
	return a + b
}

// Fib returns the n-th Fibonacci number, recursively.
func Fib(n int) (r int) {
	defer fntrace.Enter(n).Return(&r)
	if n < 2 {
		return n
	}
	return Fib(n-1) + Fib(n-2)
}

// Div divides and panics on a zero divisor.
func Div(a, b int) (r int) {
	defer fntrace.Enter(a, b).Return(&r)
	return a / b
}

// ErrDivByZero is returned by SafeDiv.
var ErrDivByZero = errors.New("division by zero")

// SafeDiv calls Div and turns its panic into an error.
func SafeDiv(a, b int) (q int, err error) {
	defer fntrace.Enter(a, b).Return(&q, &err)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDivByZero, r)
		}
	}()
	return Div(a, b), nil
}

// Outer calls Middle twice.
func Outer(x int) (r int) {
	defer fntrace.Enter(x).Return(&r)
	return Middle(x) + Middle(x+1)
}

// Middle calls Inner.
func Middle(x int) (r int) {
	defer fntrace.Enter(x).Return(&r)
	return Inner(x) * 2
}

// Inner is the leaf of the Outer chain.
func Inner(x int) (r int) {
	defer fntrace.Enter(x).Return(&r)
	return x + 1
}

// Scaler is an operator: registered instances are traced by their name.
type Scaler struct {
	Factor int
}

// Call scales x.
func (s *Scaler) Call(x int) (r int) {
	defer fntrace.EnterOn(s, x).Return(&r)
	return x * s.Factor
}

// Doubler is the Scaler the demo registers as an instance.
var Doubler = &Scaler{Factor: 2}

// Tripler shares Doubler's type but is never registered.
var Tripler = &Scaler{Factor: 3}

// Account is traced through Methods[Account].
type Account struct {
	balance int
}

// Deposit adds amount and returns the new balance.
func (a *Account) Deposit(amount int) (r int) {
	defer fntrace.Enter(fntrace.Named{Name: "amount", Value: amount}).Return(&r)
	a.balance += amount
	return a.balance
}

// Balance returns the current balance.
func (a *Account) Balance() (r int) {
	defer fntrace.Enter().Return(&r)
	return a.balance
}

func (a *Account) String() string {
	return fmt.Sprintf("Account(%d)", a.balance)
}
