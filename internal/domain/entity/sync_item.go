package entity

import (
	"encoding/json"
	"time"
)

// Sync queue item states. Pending items drain strictly in seq order; failed
// items were rejected by the server, stay out of the drain path and wait for
// manual inspection.
const (
	SyncItemPending = "pending"
	SyncItemFailed  = "failed"
)

// SyncQueueItem is one completed offline attempt staged for upload. Seq is
// assigned by the local store and fixes upload order; the payload is the full
// attempt envelope the server needs to recreate the attempt.
type SyncQueueItem struct {
	Seq            int64           `json:"seq"`
	AttemptLocalID AttemptID       `json:"attempt_local_id"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	LastError      string          `json:"last_error,omitempty"`
	NextRetryAt    *time.Time      `json:"next_retry_at,omitempty"`
	EnqueuedAt     time.Time       `json:"enqueued_at"`
}

// SyncPayload is the envelope stored in a queue item and posted to the sync
// endpoint: everything needed to recreate a completed attempt server-side.
type SyncPayload struct {
	ClientRef        string       `json:"client_ref"`
	UserID           string       `json:"user_id"`
	QuizID           string       `json:"quiz_id"`
	QuestionIDs      []string     `json:"question_ids"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
	FinishedBy       string       `json:"finished_by"`
	StartedAt        time.Time    `json:"started_at"`
	FinishedAt       time.Time    `json:"finished_at"`
	DurationSeconds  int          `json:"duration_seconds"`
	Answers          []SyncAnswer `json:"answers"`
}

// SyncAnswer is one answered slot inside a sync payload.
type SyncAnswer struct {
	QuestionID     string  `json:"question_id"`
	Position       int     `json:"position"`
	SelectedOption *string `json:"selected_option"`
}
