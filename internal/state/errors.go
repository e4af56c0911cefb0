package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that a referenced entity does not exist in the
	// document.
	ErrNotFound = errors.New("state: entity not found")
	// ErrValidation indicates that an input or a candidate document violates
	// a structural constraint.
	ErrValidation = errors.New("state: validation failed")
	// ErrIntegrity indicates that stored bytes do not match their recorded
	// checksum.
	ErrIntegrity = errors.New("state: integrity check failed")
	// ErrParse indicates that raw bytes could not be read as a document.
	ErrParse = errors.New("state: parse failed")
)

// ValidationError aggregates every constraint violated by a candidate
// document so callers can surface them all at once.
type ValidationError struct {
	Reason   string
	Problems []string
}

// NewValidationError builds a ValidationError from a summary reason and the
// individual violations.
func NewValidationError(reason string, problems []string) *ValidationError {
	return &ValidationError{Reason: reason, Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
