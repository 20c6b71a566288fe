package demo

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fntrace"
	"fntrace/internal/trace"
)

func TestRunTrace(t *testing.T) {
	var buf bytes.Buffer
	err := fntrace.Trace(Targets(1), func() {
		require.NoError(t, Run(context.Background(), Options{Fib: 3}))
	}, fntrace.WithWriter(&buf), fntrace.WithColor(fntrace.ColorOff))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 24)

	require.Equal(t, []string{
		"- demo.Add(2, 3)",
		"-> 5",
		"- demo.Fib(3)",
		"|   - demo.Fib(2)",
		"|   -> 1",
		"|   - demo.Fib(1)",
		"|   -> 1",
		"-> 2",
		"- demo.SafeDiv(1, 0)",
		"|   - demo.Div(1, 0)",
	}, lines[:10])
	require.True(t, strings.HasPrefix(lines[10], "|   -> !! "), lines[10])
	require.Contains(t, lines[10], "integer divide by zero")
	require.True(t, strings.HasPrefix(lines[11], "-> (0, "), lines[11])
	require.Contains(t, lines[11], "division by zero")

	require.Equal(t, []string{
		"- demo.Outer(1)",
		"|   - demo.Middle(1)",
		"|   -> 4",
		"|   - demo.Middle(2)",
		"|   -> 6",
		"-> 10",
		"- demo.(*Scaler).Call(4)",
		"-> 8",
		"- demo.(*Account).Deposit(amount=10)",
		"-> 10",
		"- demo.(*Account).Balance()",
		"-> 10",
	}, lines[12:24])
}

func TestRunWorkersNestPerGoroutine(t *testing.T) {
	s, err := fntrace.Start(Targets(-1), fntrace.WithRing(1<<16))
	require.NoError(t, err)
	require.NoError(t, Run(context.Background(), Options{Fib: 5, Workers: 4}))
	require.NoError(t, s.Stop())

	events := s.Events()
	require.NoError(t, trace.CheckNesting(events))

	gids := make(map[uint64]struct{})
	for _, ev := range events {
		gids[ev.GID] = struct{}{}
	}
	require.Len(t, gids, 5)
}

func TestRunWithoutSession(t *testing.T) {
	require.NoError(t, Run(context.Background(), Options{Fib: 4, Workers: 2}))
	q, err := SafeDiv(6, 0)
	require.ErrorIs(t, err, ErrDivByZero)
	require.Zero(t, q)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Run(ctx, Options{Fib: 2, Workers: 3}), context.Canceled)
}
