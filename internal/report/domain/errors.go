package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConfiguration = errors.New("configuration_error")
	ErrNotFound      = errors.New("not_found")

	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidRange    = errors.New("invalid_range")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNegativeAmount  = errors.New("invalid_amount")
	ErrInvalidAmount   = errors.New("invalid_amount_precision")
	ErrNegativeCount   = errors.New("invalid_count")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrTooManyLines    = errors.New("invalid_line_count")

	// ErrConflictRetry is returned by the store when a create lost the
	// (user, date) uniqueness race. Submit handles it; callers never see it.
	ErrConflictRetry = errors.New("conflict_retry")
)

// IsValidationError reports whether err rejects malformed input.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrNegativeCount),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrTooManyLines):
		return true
	default:
		return false
	}
}

// PersistenceError wraps a failed store operation. It is not retried here.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *PersistenceError
	if errors.As(err, &existing) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
