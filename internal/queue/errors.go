package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokerUnavailable is returned when the broker cannot be reached or
	// rejects an operation.
	ErrBrokerUnavailable = errors.New("message broker unavailable")

	// ErrDisabled is returned by every operation after the client gave up
	// connecting at startup. The failure has already been logged once.
	ErrDisabled = fmt.Errorf("%w: reminders disabled for this run", ErrBrokerUnavailable)

	// ErrClosed is returned after Close.
	ErrClosed = fmt.Errorf("%w: client closed", ErrBrokerUnavailable)
)
