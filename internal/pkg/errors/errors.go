package errors

import "errors"

// Application-wide sentinel errors. Services wrap these with %w so handlers
// can map them to HTTP status codes with errors.Is.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned for authorization failures (bad token, no rights).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for invalid input data.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned for state conflicts, including unique-constraint
	// collisions surfaced by the storage layer.
	ErrConflict = errors.New("resource state conflict")

	// ErrInvalidState is returned when an operation is not allowed in the
	// attempt's current lifecycle state (answering a finished attempt,
	// finishing twice, answering a locked question).
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrIncompleteSession is returned when a persisted attempt snapshot is
	// missing fields required to resume it.
	ErrIncompleteSession = errors.New("attempt session data incomplete")

	// ErrUnscoreableQuestion is returned when none of a question's answer-key
	// columns normalize to a valid option.
	ErrUnscoreableQuestion = errors.New("question has no usable answer key")

	// ErrSyncRejected marks a sync upload the server refused permanently
	// (malformed payload, unknown quiz). Retrying cannot help.
	ErrSyncRejected = errors.New("sync item rejected")

	// ErrSyncRecoverable marks a transient sync failure (network, 5xx).
	// The item stays at the head of the queue for the next drain pass.
	ErrSyncRecoverable = errors.New("sync temporarily unavailable")
)
