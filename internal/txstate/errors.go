package txstate

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions callers branch on.
var (
	// ErrLockTimeout indicates lock acquisition did not succeed within the
	// caller-specified window. Recoverable: retry, degrade, or skip.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrConcurrentModification is reserved for optimistic-concurrency
	// callers that embed a version field in their payload and detect a stale
	// write inside their transform function. The store exposes the sentinel
	// but never raises it itself.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// ValidationError reports that a caller-supplied predicate rejected the
// value before any disk write occurred. The target file is untouched.
type ValidationError struct {
	Path string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation rejected value for %s", e.Path)
}

// TransactionError wraps any I/O or serialization failure with the path and
// operation for diagnosis. Lock timeouts are wrapped too, so
// errors.Is(err, ErrLockTimeout) works through it.
type TransactionError struct {
	Op    string // "write", "read", "update"
	Path  string
	Cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("txstate %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}

func txErr(op, path string, cause error) error {
	return &TransactionError{Op: op, Path: path, Cause: cause}
}

// IsLockTimeout reports whether err stems from lock contention.
func IsLockTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
