package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrQueryFailed is returned when a read query fails for reasons other than
	// a missing row, e.g. connectivity loss or a schema mismatch.
	ErrQueryFailed = errors.New("query failed")

	// ErrSchemaMismatch is wrapped into query errors caused by a missing table
	// or column, typically an unapplied migration.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// IsSchemaMismatch reports whether err was caused by a missing table or column.
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "task")
	Operation string // The operation that failed (e.g., "find_due")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// AsStoreError reports whether err is or wraps a *StoreError and returns it.
func AsStoreError(err error) (*StoreError, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr, true
	}
	return nil, false
}
