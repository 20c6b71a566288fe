// Package depth computes emission ceilings for nested traced calls.
//
// A ceiling is the first stack level at which events are no longer emitted.
// The root ceiling comes from the global maximum depth; every frame of a target
// with an additional depth d pushed at level L tightens the ceiling for its
// descendants to min(parent, L+1+d). Ceilings never loosen while descending,
// and popping a frame restores the ceiling of the frame beneath it.
package depth

import (
	"math"
	"strconv"
)

// Ceiling is an exclusive upper bound on emitting levels.
type Ceiling int

// Unbounded means no level is suppressed.
const Unbounded Ceiling = math.MaxInt

// String renders the ceiling for diagnostics.
func (c Ceiling) String() string {
	if c == Unbounded {
		return "inf"
	}
	return strconv.Itoa(int(c))
}

// Constraint is the additional-depth contribution of one frame.
type Constraint struct {
	Level      int
	Additional int
	Limited    bool
}

// Candidate returns the ceiling this constraint alone would impose.
func (c Constraint) Candidate() Ceiling {
	if !c.Limited {
		return Unbounded
	}
	if c.Additional >= int(Unbounded)-c.Level-1 {
		return Unbounded
	}
	return Ceiling(c.Level + 1 + c.Additional)
}

// Limiter combines the global depth with per-target constraints.
type Limiter struct {
	root Ceiling
}

// NewLimiter returns a limiter emitting at most maxDepth levels.
// A negative maxDepth is unbounded.
func NewLimiter(maxDepth int) *Limiter {
	if maxDepth < 0 {
		return &Limiter{root: Unbounded}
	}
	return &Limiter{root: Ceiling(maxDepth)}
}

// Root returns the ceiling of an empty stack.
func (l *Limiter) Root() Ceiling {
	if l == nil {
		return Unbounded
	}
	return l.root
}

// Admit reports whether a call at level may emit under ceiling.
func (l *Limiter) Admit(level int, ceiling Ceiling) bool {
	return Ceiling(level) < ceiling
}

// Descend returns the ceiling a newly pushed frame imposes on its descendants.
func (l *Limiter) Descend(parent Ceiling, c Constraint) Ceiling {
	return min(parent, c.Candidate())
}

// Recompute returns the minimum over the given ancestor constraints, or the
// root ceiling when none remain. It equals the ceiling stored on the top frame
// after any sequence of Descend pushes and pops.
func (l *Limiter) Recompute(ancestors []Constraint) Ceiling {
	out := l.Root()
	for _, c := range ancestors {
		out = min(out, c.Candidate())
	}
	return out
}
