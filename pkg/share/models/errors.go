package models

import "errors"

// Domain errors for the share orchestrator. The API layer maps these to
// structured error codes; the async workers use them to distinguish
// retryable from terminal failures.
var (
	// Share object errors
	ErrShareNotFound       = errors.New("share object not found")
	ErrShareAlreadyExists  = errors.New("share object already exists for this dataset, principal and environment")
	ErrShareItemNotFound   = errors.New("share item not found")
	ErrShareItemsNotFound  = errors.New("share object has no items in a shareable state")
	ErrDataFilterNotFound  = errors.New("share item data filter not found")
	ErrDuplicateDataFilter = errors.New("a data filter with this label already exists on the share item")

	// Collaborator resource errors
	ErrDatasetNotFound     = errors.New("dataset not found")
	ErrEnvironmentNotFound = errors.New("environment not found")
	ErrGroupNotFound       = errors.New("environment group not found")

	// State machine errors
	ErrInvalidTransition = errors.New("state transition not allowed from current status")

	// Authorization errors
	ErrUnauthorized = errors.New("principal is not authorized for this operation")

	// Concurrency errors. AcquireLockFailure is transient: a concurrent
	// provisioning run holds the share's advisory lock, callers should retry.
	ErrAcquireLockFailure = errors.New("could not acquire share lock, concurrent run in progress")

	// Configuration errors
	ErrSameAccountShare  = errors.New("source and target environments resolve to the same account")
	ErrProcessorNotFound = errors.New("no processor registered for shareable type")
)
