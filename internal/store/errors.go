package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a unique constraint.
	ErrConflict = errors.New("conflict")
)

const uniqueViolation = "23505"

// ConflictError carries the violated constraint of a unique violation.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return "unique constraint violated: " + e.Constraint
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// translate maps driver errors onto store errors.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &ConflictError{Constraint: pqErr.Constraint}
	}
	return err
}
