package trace

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindEnter marks a traced call.
	KindEnter Kind = iota + 1
	// KindExit marks the normal return of a traced call.
	KindExit
	// KindException marks a traced call unwinding with a panic.
	KindException
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindExit:
		return "exit"
	case KindException:
		return "exception"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "enter":
		return KindEnter, nil
	case "exit":
		return KindExit, nil
	case "exception":
		return KindException, nil
	default:
		return 0, fmt.Errorf("invalid event kind: %q (expected: enter|exit|exception)", s)
	}
}

// Event represents a single trace event.
type Event struct {
	Seq     uint64 // global sequence number (monotonic)
	GID     uint64 // goroutine that crossed the boundary
	Kind    Kind
	Level   int    // nesting level within the goroutine
	Name    string // display name of the target, e.g. "calc.Add"
	Args    []any  // enter: arguments as passed
	Results []any  // exit: return values
	Panic   any    // exception: the propagating panic value
}

var globalSeq atomic.Uint64

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return globalSeq.Add(1)
}

// Named is an argument rendered as name=value.
type Named struct {
	Name  string
	Value any
}

// Rendered is a value that was already formatted, e.g. decoded from a record
// file. It is printed verbatim.
type Rendered string
