package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks corrupt upstream data. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSequenceCollision is returned when a PO number is already taken.
	ErrSequenceCollision = errors.New("po sequence collision")
	// ErrStaleVendorData is returned when a reliability update names an unknown vendor.
	ErrStaleVendorData = errors.New("unknown vendor")
	// ErrPurchaseOrderNotFound is returned by PO lookups.
	ErrPurchaseOrderNotFound = errors.New("purchase order not found")
	// ErrRunNotFound is returned when no run has been recorded yet.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidTransition is returned for illegal PO lifecycle moves.
	ErrInvalidTransition = errors.New("invalid purchase order transition")
)

// InvalidInputError names the offending field.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInput builds an InvalidInputError.
func NewInvalidInput(field string, value any, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}
