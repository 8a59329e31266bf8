package ports

import (
	"errors"
	"fmt"
)

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trade lifecycle errors
	ErrValidation         = errors.New("validation failed")
	ErrComputation        = errors.New("computation produced an invalid value")
	ErrTradeAlreadyClosed = errors.New("trade is already closed")
	ErrImmutableField     = errors.New("field cannot be changed after creation")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)

// ValidationError reports input that was rejected before any state was produced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ComputationError reports a non-finite result computed from corrupt upstream data.
type ComputationError struct {
	Op    string
	Value float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s produced a non-finite value (%v); check the trade's stored prices", e.Op, e.Value)
}

// Unwrap lets errors.Is match ErrComputation.
func (e *ComputationError) Unwrap() error { return ErrComputation }
