package sequencer

import (
	"errors"
	"fmt"
)

// InvariantError is the panic value raised when an index escapes its range.
// Indices are modulo-bounded by the state machine, so this means a modeling
// bug or a corrupt state slipped past Validate.
type InvariantError struct {
	What  string // "pattern" or "step"
	Index int
	Limit int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s index %d out of range [0,%d)", e.What, e.Index, e.Limit)
}

// IsInvariantError reports whether err (or a recovered panic value) is an InvariantError
func IsInvariantError(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var ie *InvariantError
	return errors.As(err, &ie)
}

func mustIndex(what string, i, limit int) {
	if i < 0 || i >= limit {
		panic(&InvariantError{What: what, Index: i, Limit: limit})
	}
}
