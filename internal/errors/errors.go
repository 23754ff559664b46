// Package errors holds the sentinels shared by every bounded context. Domain packages
// wrap them so that adapters can map a failure without knowing where it came from.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrIntegrity means stored blocks no longer match their fingerprints. It is
	// reported, never repaired.
	ErrIntegrity = errors.New("integrity violation")

	// ErrStorageExhausted means the store refused a write. The write is rolled back.
	ErrStorageExhausted = errors.New("storage exhausted")
)

// Wrap prefixes err with message and keeps it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
