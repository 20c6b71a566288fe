package interceptor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrAlreadyAttached is returned by Attach while another interceptor holds the hook.
var ErrAlreadyAttached = errors.New("an interceptor is already attached")

// AmbiguityError reports a call boundary whose receiver looks like an
// operator instance but resolves to no registered identity. The call runs
// untraced.
type AmbiguityError struct {
	Func string
	Recv reflect.Type // nil when the receiver was not a usable pointer
}

func (e *AmbiguityError) Error() string {
	if e.Recv == nil {
		return fmt.Sprintf("call %s: receiver cannot be resolved to an instance", e.Func)
	}
	return fmt.Sprintf("call %s: instance of %s is not registered", e.Func, e.Recv)
}

// InternalError wraps a fault raised inside the engine or its sink while
// handling a boundary.
type InternalError struct {
	Op    string // call, exit, exception, emit or ceiling
	Value any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal fault during %s: %v", e.Op, e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *InternalError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// SinkErrorPolicy decides what a failed trace write does to the session.
type SinkErrorPolicy uint8

const (
	// SinkErrorDrop loses the event and keeps tracing. The first failure is logged.
	SinkErrorDrop SinkErrorPolicy = iota
	// SinkErrorAbort detaches the interceptor; the error is kept for Err.
	SinkErrorAbort
)

// String returns the string representation of SinkErrorPolicy.
func (p SinkErrorPolicy) String() string {
	switch p {
	case SinkErrorDrop:
		return "drop"
	case SinkErrorAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseSinkErrorPolicy converts a string to a SinkErrorPolicy.
func ParseSinkErrorPolicy(s string) (SinkErrorPolicy, error) {
	switch strings.ToLower(s) {
	case "", "drop":
		return SinkErrorDrop, nil
	case "abort":
		return SinkErrorAbort, nil
	default:
		return SinkErrorDrop, fmt.Errorf("invalid sink error policy: %q (expected: drop|abort)", s)
	}
}

// AmbiguityPolicy decides whether ambiguous call boundaries are reported.
type AmbiguityPolicy uint8

const (
	// AmbiguityIgnore treats ambiguous calls as untraced, silently.
	AmbiguityIgnore AmbiguityPolicy = iota
	// AmbiguityReport also hands an *AmbiguityError to the error handler.
	AmbiguityReport
)

// String returns the string representation of AmbiguityPolicy.
func (p AmbiguityPolicy) String() string {
	switch p {
	case AmbiguityIgnore:
		return "ignore"
	case AmbiguityReport:
		return "report"
	default:
		return "unknown"
	}
}

// ParseAmbiguityPolicy converts a string to an AmbiguityPolicy.
func ParseAmbiguityPolicy(s string) (AmbiguityPolicy, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return AmbiguityIgnore, nil
	case "report", "raise":
		return AmbiguityReport, nil
	default:
		return AmbiguityIgnore, fmt.Errorf("invalid ambiguity policy: %q (expected: ignore|report)", s)
	}
}
