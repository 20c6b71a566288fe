package registry

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned by Register once the session has started.
var ErrFrozen = errors.New("registry is frozen")

// ResolutionError reports a candidate that cannot be mapped to a matchable identity.
// It is never fatal: the candidate is skipped.
type ResolutionError struct {
	Candidate string
	Reason    string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve target %s: %s", e.Candidate, e.Reason)
}
