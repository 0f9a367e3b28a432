package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error leaving a repository or service wraps exactly one of
// these so the boundary can pick a status code with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrPartialFailure  = errors.New("partial failure")
	ErrStorage         = errors.New("storage error")
)

// PartialFailureError reports a multi-step write that committed some of its steps.
// Operators use OrderID to reconcile the orphaned row.
type PartialFailureError struct {
	Op      string
	OrderID int64
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: order %d partially removed: %v", e.Op, e.OrderID, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// Kind names the failure kind of err for metrics labels and response codes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialFailure):
		return "PARTIAL_FAILURE"
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrStorage):
		return "STORAGE"
	default:
		return "INTERNAL"
	}
}

// AsStorage leaves classified errors alone and marks anything else as a storage
// failure of op.
func AsStorage(op string, err error) error {
	if err == nil || Kind(err) != "INTERNAL" {
		return err
	}

	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
