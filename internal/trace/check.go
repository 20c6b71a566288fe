package trace

import "fmt"

// NestingError describes the first event that breaks well-nestedness.
type NestingError struct {
	GID    uint64
	Seq    uint64
	Reason string
}

func (e *NestingError) Error() string {
	return fmt.Sprintf("goroutine %d, event %d: %s", e.GID, e.Seq, e.Reason)
}

// CheckNesting verifies, per goroutine:
// 1) every enter at level L is closed by exactly one exit or exception at L
// 2) no other event at a level <= L occurs before that close
// 3) nothing is left open at the end
func CheckNesting(events []Event) error {
	open := make(map[uint64][]int)
	var order []uint64

	for _, ev := range events {
		stack, seen := open[ev.GID]
		if !seen {
			order = append(order, ev.GID)
		}
		switch ev.Kind {
		case KindEnter:
			if ev.Level < 0 {
				return &NestingError{GID: ev.GID, Seq: ev.Seq, Reason: fmt.Sprintf("negative level %d", ev.Level)}
			}
			if n := len(stack); n > 0 && ev.Level <= stack[n-1] {
				return &NestingError{GID: ev.GID, Seq: ev.Seq, Reason: fmt.Sprintf("enter at level %d inside open level %d", ev.Level, stack[n-1])}
			}
			open[ev.GID] = append(stack, ev.Level)
		case KindExit, KindException:
			n := len(stack)
			if n == 0 {
				return &NestingError{GID: ev.GID, Seq: ev.Seq, Reason: fmt.Sprintf("%s at level %d without enter", ev.Kind, ev.Level)}
			}
			if stack[n-1] != ev.Level {
				return &NestingError{GID: ev.GID, Seq: ev.Seq, Reason: fmt.Sprintf("%s at level %d closes open level %d", ev.Kind, ev.Level, stack[n-1])}
			}
			open[ev.GID] = stack[:n-1]
		default:
			return &NestingError{GID: ev.GID, Seq: ev.Seq, Reason: fmt.Sprintf("unknown kind %d", ev.Kind)}
		}
	}

	for _, gid := range order {
		if stack := open[gid]; len(stack) > 0 {
			return &NestingError{GID: gid, Reason: fmt.Sprintf("%d call(s) never closed, innermost at level %d", len(stack), stack[len(stack)-1])}
		}
	}
	return nil
}
