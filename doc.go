// Package fntrace prints a nested trace of calls to selected functions:
// arguments in, return values or panic out.
//
//	err := fntrace.Trace([]any{calc.Add, fntrace.Limit(calc.Fib, 1)}, func() {
//		calc.Fib(3)
//	})
//
// prints
//
//	- calc.Fib(3)
//	|   - calc.Fib(2)
//	|   -> 1
//	|   - calc.Fib(1)
//	|   -> 1
//	-> 2
//
// # Boundaries
//
// Go has no hook that fires on every call, so traced code reports its own
// boundaries. A function opts in with a marker:
//
//	func Fib(n int) (r int) {
//		defer fntrace.Enter(n).Return(&r)
//		...
//	}
//
// The marker costs one atomic load when no session is active. Functions that
// cannot be edited are traced through proxies: Wrap returns one, and Patch
// swaps a function variable for one during a session.
//
// Markers only report; whether a call is traced is decided by the session's
// targets. Depth limits, per-goroutine nesting and panics are handled by the
// engine, and a panic leaving a traced function is re-raised unchanged.
//
// # Output
//
// Lines go to stdout by default. WithDirectory writes one file per goroutine;
// WithFormat(FormatMsgpack) produces record files the fntrace command can
// render, check and browse.
package fntrace
