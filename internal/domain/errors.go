// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidID is returned when an ID is missing or not positive.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrEmptyTitle is returned when a task has no title.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrMissingDueDate is returned when a task has a zero due date.
	ErrMissingDueDate = errors.New("due date cannot be empty")

	// ErrInvalidRole is returned when an assignment role is not recognized.
	ErrInvalidRole = errors.New("invalid assignment role")

	// ErrEmptyCorrelationID is returned when a reminder carries no correlation ID.
	ErrEmptyCorrelationID = errors.New("correlation ID cannot be empty")
)
