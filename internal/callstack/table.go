package callstack

import "sync"

// Table holds the stacks of all goroutines that currently have active frames.
type Table struct {
	mu     sync.RWMutex
	stacks map[uint64]*Stack
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{stacks: make(map[uint64]*Stack)}
}

// Get returns the stack of gid, creating it on first use.
func (t *Table) Get(gid uint64) *Stack {
	t.mu.RLock()
	s, ok := t.stacks[gid]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stacks[gid]; ok {
		return s
	}
	s = NewStack(gid)
	t.stacks[gid] = s
	return s
}

// Lookup returns the stack of gid without creating one.
func (t *Table) Lookup(gid uint64) (*Stack, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stacks[gid]
	return s, ok
}

// Release drops s from the table once it holds nothing.
func (t *Table) Release(s *Stack) {
	if s == nil || !s.Empty() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.stacks[s.gid]; ok && cur == s && s.Empty() {
		delete(t.stacks, s.gid)
	}
}

// Len returns the number of goroutines with a live stack.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.stacks)
}

// Reset drops every stack.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.stacks)
}
