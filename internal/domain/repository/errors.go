package repository

import "errors"

var (
	// ErrDuplicateEvent means an XP event for the attempt already exists.
	// Callers treat it as confirmation that the reward was already granted.
	ErrDuplicateEvent = errors.New("xp event already recorded for attempt")
	// ErrDuplicateAttempt means an attempt with the same client_ref already
	// exists; the existing row is authoritative.
	ErrDuplicateAttempt = errors.New("attempt already synced for client ref")
	// ErrCacheMiss means the requested key or member is not in the cache.
	ErrCacheMiss = errors.New("cache miss")
	// ErrQueueEmpty means the offline queue has no pending items.
	ErrQueueEmpty = errors.New("sync queue empty")
)
