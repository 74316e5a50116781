package core

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Handlers map them to HTTP statuses and
// the background pipeline records them on the artifact's status field.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrIdentityNotFound    = errors.New("identity not found")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamMalformed   = errors.New("upstream response malformed")
	ErrStorageFailure      = errors.New("storage failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// NewError builds a kind error without an underlying cause.
func NewError(kind error, operation, msg string) error {
	return fmt.Errorf("%s: %w: %s", operation, kind, msg)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
