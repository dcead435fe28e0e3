package service

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
)

// OfflineQueue stages completed attempts that could not reach the remote
// store. Append-only: items leave only through the sync drain (success) or
// by being marked permanently failed (rejection).
type OfflineQueue struct {
	store repository.LocalStore
}

// NewOfflineQueue creates a new offline queue over the local store
func NewOfflineQueue(store repository.LocalStore) *OfflineQueue {
	return &OfflineQueue{store: store}
}

// Stage persists a completed attempt for later upload. The local id keeps
// its marker until the sync coordinator confirms a remote one.
func (q *OfflineQueue) Stage(localID entity.AttemptID, payload *entity.SyncPayload) (*entity.SyncQueueItem, error) {
	if !localID.IsLocal() {
		return nil, fmt.Errorf("only local attempts are staged, got %s", localID)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode sync payload for %s: %w", localID, err)
	}

	item := &entity.SyncQueueItem{
		AttemptLocalID: localID,
		Payload:        raw,
	}
	if err := q.store.Enqueue(item); err != nil {
		return nil, fmt.Errorf("enqueue attempt %s: %w", localID, err)
	}

	log.Printf("[OfflineQueue] Staged attempt %s as seq %d", localID, item.Seq)
	return item, nil
}

// Pending returns the items waiting for the next drain, in upload order.
func (q *OfflineQueue) Pending() ([]entity.SyncQueueItem, error) {
	return q.store.ListPending()
}

// Failed returns the items the server permanently rejected. They are
// surfaced as "not saved", never silently discarded.
func (q *OfflineQueue) Failed() ([]entity.SyncQueueItem, error) {
	return q.store.ListFailed()
}

// ResolveRemoteID returns the remote id of a promoted local attempt.
func (q *OfflineQueue) ResolveRemoteID(localID entity.AttemptID) (string, error) {
	return q.store.ResolveRemoteID(localID)
}
