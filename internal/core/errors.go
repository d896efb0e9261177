package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyPatch        = errors.New("nothing to update")
	ErrUnknownCategory   = errors.New("unknown category")

	ErrUnauthenticated      = errors.New("not authenticated")
	ErrNotFound             = errors.New("entry not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrPartialReset         = errors.New("reset partially failed")
)

// ValidationError reports a rejected input. Err is one of
// ErrEmptyDescription, ErrInvalidAmount, ErrInsufficientFunds or ErrEmptyPatch.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StoreError wraps a collaborator failure so that it matches
// ErrStoreUnavailable while keeping the cause.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrProfileNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
