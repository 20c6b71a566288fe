package demo

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fntrace"
)

// Targets returns the demo's session targets. fibDepth bounds how many
// levels below the outermost Fib call are shown; negative shows all.
func Targets(fibDepth int) []any {
	var fib any = Fib
	if fibDepth >= 0 {
		fib = fntrace.Limit(Fib, fibDepth)
	}
	return []any{
		Add,
		fib,
		Div,
		SafeDiv,
		fntrace.Limit(Outer, 1),
		Middle,
		Inner,
		fntrace.Instance(Doubler),
		fntrace.Methods[Account](),
	}
}

// Options for Run.
type Options struct {
	Fib     int // argument of the Fib call
	Workers int // goroutines computing Fib concurrently, 0 = none
}

// Run exercises every demo target once, then fans Fib out to workers.
func Run(ctx context.Context, opts Options) error {
	Add(2, 3)
	Fib(opts.Fib)
	_, _ = SafeDiv(1, 0)
	Outer(1)
	Doubler.Call(4)
	Tripler.Call(4)

	acct := &Account{}
	acct.Deposit(10)
	acct.Balance()

	g, gctx := errgroup.WithContext(ctx)
	for i := range opts.Workers {
		n := opts.Fib + i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			Fib(n)
			return nil
		})
	}
	return g.Wait()
}
