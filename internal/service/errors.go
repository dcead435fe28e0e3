package service

import "errors"

// Service-level errors not covered by the shared sentinels in
// internal/pkg/errors.
var (
	// ErrAttemptInProgress means the user already has a live attempt; it
	// must be resumed or explicitly abandoned before starting another.
	ErrAttemptInProgress = errors.New("an attempt is already in progress")
	// ErrNoLiveSession means no runner is registered for the user.
	ErrNoLiveSession = errors.New("no live attempt session")
)
