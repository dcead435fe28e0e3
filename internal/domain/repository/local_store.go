package repository

import (
	"encoding/json"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// AttemptSnapshot is the durable form of an in-progress attempt, written
// after every accepted answer so a crash loses at most the action in flight.
// Payload is the serialized runner session; the store treats it as opaque.
type AttemptSnapshot struct {
	AttemptID entity.AttemptID `json:"attempt_id"`
	UserID    string           `json:"user_id"`
	QuizID    string           `json:"quiz_id"`
	State     string           `json:"state"`
	Payload   json.RawMessage  `json:"payload"`
	UpdatedAt int64            `json:"updated_at"`
}

// LocalStore is the device-side durable store: attempt snapshots for crash
// recovery plus the offline sync queue. Implementations must survive process
// restarts; everything here is per-device, not shared.
type LocalStore interface {
	// Snapshots.
	SaveSnapshot(snap *AttemptSnapshot) error
	GetSnapshot(attemptID entity.AttemptID) (*AttemptSnapshot, error)
	ListSnapshots(userID string) ([]AttemptSnapshot, error)
	DeleteSnapshot(attemptID entity.AttemptID) error

	// Offline queue. Seq is assigned on enqueue and fixes drain order.
	Enqueue(item *entity.SyncQueueItem) error
	// PeekNext returns the pending item with the lowest seq, or ErrQueueEmpty.
	PeekNext() (*entity.SyncQueueItem, error)
	Dequeue(seq int64) error
	// MarkRetry bumps retry_count and records the error without advancing
	// the queue; the item stays at the head.
	MarkRetry(seq int64, lastError string) error
	// MarkFailed moves a rejected item out of the drain path.
	MarkFailed(seq int64, lastError string) error
	ListPending() ([]entity.SyncQueueItem, error)
	ListFailed() ([]entity.SyncQueueItem, error)

	// Local-to-remote id mapping, written when the server confirms an upload.
	MapRemoteID(local entity.AttemptID, remoteID string) error
	// ResolveRemoteID returns the remote id for a promoted local attempt, or
	// ErrNotFound if the attempt has not been synced yet.
	ResolveRemoteID(local entity.AttemptID) (string, error)

	Close() error
}
