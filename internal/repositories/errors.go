package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrAttemptClosed is returned when a write targets an attempt that is no longer in progress.
	ErrAttemptClosed = errors.New("attempt is not in progress")
)

// NotFoundError names the entity that was missing.
type NotFoundError struct {
	Entity string
	Key    interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
