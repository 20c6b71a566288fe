// Package callstack keeps one ordered stack of active traced frames per
// goroutine and pairs return boundaries with the frame pushed for their call.
package callstack

import (
	"fntrace/internal/depth"
	"fntrace/internal/registry"
)

// Link is the per-invocation token handed out at a call boundary and carried
// back by its return or exception boundary. Zero means "never traced".
type Link uint64

// Frame is one activation record of a watched target.
type Frame struct {
	Link       Link
	Target     registry.Target
	Level      int
	Constraint depth.Constraint
	Ceiling    depth.Ceiling // ceiling imposed on descendants, fixed at push
	Emitting   bool
	Proxy      bool // opened by a forwarding proxy
	BodySeen   bool // the proxied body reported its own call boundary
}

// Stack is the frame stack of one goroutine. It is only ever touched by the
// goroutine that owns it.
type Stack struct {
	gid     uint64
	frames  []Frame
	unwound Link // link popped by an exception whose return boundary is still due
}

// NewStack creates an empty stack for goroutine gid.
func NewStack(gid uint64) *Stack {
	return &Stack{gid: gid, frames: make([]Frame, 0, 16)}
}

// GID returns the owning goroutine id.
func (s *Stack) GID() uint64 { return s.gid }

// Depth returns the number of active frames, which is also the level of the
// next pushed frame.
func (s *Stack) Depth() int { return len(s.frames) }

// Empty reports whether no frame is active and no unwind is pending.
func (s *Stack) Empty() bool { return len(s.frames) == 0 && s.unwound == 0 }

// Push appends f.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes and returns the top frame.
func (s *Stack) Pop() (Frame, bool) {
	n := len(s.frames)
	if n == 0 {
		return Frame{}, false
	}
	f := s.frames[n-1]
	s.frames[n-1] = Frame{}
	s.frames = s.frames[:n-1]
	return f, true
}

// Top returns the top frame without removing it.
func (s *Stack) Top() (Frame, bool) {
	n := len(s.frames)
	if n == 0 {
		return Frame{}, false
	}
	return s.frames[n-1], true
}

// Matches reports whether the top frame was pushed for link.
func (s *Stack) Matches(link Link) bool {
	n := len(s.frames)
	return link != 0 && n > 0 && s.frames[n-1].Link == link
}

// Ceiling returns the ceiling in effect for the next pushed frame.
func (s *Stack) Ceiling(root depth.Ceiling) depth.Ceiling {
	n := len(s.frames)
	if n == 0 {
		return root
	}
	return s.frames[n-1].Ceiling
}

// Constraints returns the depth constraints of the active frames, bottom first.
func (s *Stack) Constraints() []depth.Constraint {
	out := make([]depth.Constraint, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Constraint
	}
	return out
}

// AbsorbBody reports whether a call boundary for id is the body of the
// proxy frame on top, already traced by it. It is true at most once per frame.
func (s *Stack) AbsorbBody(id registry.Identity) bool {
	top, ok := s.Top()
	if !ok || !top.Proxy || top.BodySeen || top.Target.Identity != id {
		return false
	}
	s.frames[len(s.frames)-1].BodySeen = true
	return true
}

// MarkUnwound records that link was popped by an exception boundary.
func (s *Stack) MarkUnwound(link Link) {
	s.unwound = link
}

// TakeUnwound reports whether link is the pending unwound link and clears it.
func (s *Stack) TakeUnwound(link Link) bool {
	if link == 0 || s.unwound != link {
		return false
	}
	s.unwound = 0
	return true
}

// Silence marks the top frame as non-emitting so its return boundary stays
// quiet. It is used when the enter line of the frame could not be written.
func (s *Stack) Silence() {
	if n := len(s.frames); n > 0 {
		s.frames[n-1].Emitting = false
	}
}
