package trace

import "fmt"

// WriteError reports an I/O failure while writing a trace line.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("trace write to %s: %v", e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
