package types

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrValidation is returned when caller input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrTaskNotFound is returned when a task id does not refer to an
	// active task. It is an expected, recoverable outcome: callers branch
	// on it with errors.Is instead of treating it as a fault.
	ErrTaskNotFound = errors.New("task not found")

	// ErrStore is returned when a persistence operation fails.
	ErrStore = errors.New("store operation failed")
)
