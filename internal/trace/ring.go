package trace

import (
	"io"
	"sync"
)

// RingSink keeps the last N events in memory (circular buffer).
type RingSink struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	head     int  // next write position
	full     bool // has wrapped around
}

// NewRingSink creates a new RingSink with specified capacity.
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = 4096
	}

	return &RingSink{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

// Emit adds an event to the ring buffer. Argument slices are copied; the
// values themselves are kept by reference.
func (t *RingSink) Emit(ev *Event) error {
	stored := *ev
	stored.Args = append([]any(nil), ev.Args...)
	stored.Results = append([]any(nil), ev.Results...)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events[t.head] = stored
	t.head = (t.head + 1) % t.capacity

	if t.head == 0 {
		t.full = true
	}
	return nil
}

// Snapshot returns a copy of all stored events in chronological order.
func (t *RingSink) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		// Not wrapped yet - return [0:head]
		result := make([]Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}

	// Wrapped - return [head:capacity] + [0:head]
	result := make([]Event, t.capacity)
	copy(result, t.events[t.head:])
	copy(result[t.capacity-t.head:], t.events[:t.head])
	return result
}

// Dump writes all events to the provided writer using formatter.
func (t *RingSink) Dump(w io.Writer, formatter Formatter) error {
	events := t.Snapshot()
	if formatter == nil {
		formatter = &TextFormatter{}
	}

	for i := range events {
		data, err := formatter.Format(&events[i])
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// Flush is a no-op for RingSink since everything is in memory.
func (t *RingSink) Flush() error {
	return nil
}

// Close is a no-op for RingSink.
func (t *RingSink) Close() error {
	return nil
}
