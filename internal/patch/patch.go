// Package patch keeps a reversible table of replaced function variables.
// Every binding is applied under one lock and restored in reverse order, so
// overlapping patches of the same variable unwind to the original value.
package patch

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrApplied is returned when the table is modified or applied twice.
var ErrApplied = errors.New("patch table already applied")

type entry struct {
	slot        reflect.Value // settable func variable
	original    reflect.Value
	replacement reflect.Value
}

// Table records (variable, original) pairs.
type Table struct {
	mu      sync.Mutex
	entries []entry
	applied bool
}

// Add records that the func variable *ptr is to be replaced by replacement.
// ptr must be a non-nil pointer to a func variable holding a non-nil value;
// replacement must have the same type.
func (t *Table) Add(ptr, replacement any) error {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Pointer || pv.IsNil() || pv.Elem().Kind() != reflect.Func {
		return fmt.Errorf("patch: %T is not a pointer to a func variable", ptr)
	}
	slot := pv.Elem()
	if slot.IsNil() {
		return fmt.Errorf("patch: %s variable is nil", slot.Type())
	}
	rv := reflect.ValueOf(replacement)
	if !rv.IsValid() || rv.Type() != slot.Type() {
		return fmt.Errorf("patch: replacement %T does not match %s", replacement, slot.Type())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.applied {
		return ErrApplied
	}
	t.entries = append(t.entries, entry{slot: slot, replacement: rv})
	return nil
}

// Len returns the number of recorded bindings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Apply installs every replacement, remembering the values it overwrites.
func (t *Table) Apply() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.applied {
		return ErrApplied
	}
	for i := range t.entries {
		e := &t.entries[i]
		e.original = reflect.ValueOf(e.slot.Interface())
		e.slot.Set(e.replacement)
	}
	t.applied = true
	return nil
}

// Revert restores the original bindings in reverse order. It is a no-op on a
// table that is not applied.
func (t *Table) Revert() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.applied {
		return
	}
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := &t.entries[i]
		e.slot.Set(e.original)
	}
	t.applied = false
}
