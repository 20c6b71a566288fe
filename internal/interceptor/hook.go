package interceptor

import (
	"sync"
	"sync/atomic"
)

// current is the process-wide hook boundary sources report to.
var current atomic.Pointer[Interceptor]

// Current returns the attached interceptor, or nil.
func Current() *Interceptor {
	return current.Load()
}

// Handle detaches the interceptor it was returned for.
type Handle struct {
	in   *Interceptor
	once sync.Once
}

// Attach freezes the registry and installs in as the hook.
// It fails with ErrAlreadyAttached while another interceptor is installed.
func (in *Interceptor) Attach() (*Handle, error) {
	in.reg.Freeze()
	if !current.CompareAndSwap(nil, in) {
		return nil, ErrAlreadyAttached
	}
	in.active.Store(true)
	return &Handle{in: in}, nil
}

// Detach removes the hook and drops every in-flight frame. Calls still on
// the stack when Detach runs produce no further events. Safe to call twice.
func (h *Handle) Detach() {
	if h == nil {
		return
	}
	h.once.Do(h.in.detach)
}

// Interceptor returns the interceptor h controls.
func (h *Handle) Interceptor() *Interceptor {
	return h.in
}

func (in *Interceptor) detach() {
	in.active.Store(false)
	current.CompareAndSwap(in, nil)
	in.stacks.Reset()
}
