package domain

import "errors"

// Common errors shared across the orchestration engine and its stores.
var (
	// ErrNotFound means the requested entity does not exist in the repository.
	ErrNotFound = errors.New("not found")

	// ErrLocked means the conversation is already being processed by another
	// pass. Callers treat this as a silent skip, not a failure.
	ErrLocked = errors.New("conversation locked")

	// ErrNoCustomerMessage means a processing pass was requested for a
	// conversation that has no customer message to react to.
	ErrNoCustomerMessage = errors.New("no customer message")
)
