package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attempt status constants
const (
	AttemptStatusRunning   = "running"
	AttemptStatusCompleted = "completed"
	AttemptStatusAbandoned = "abandoned"
)

// How an attempt reached completion. Timeout completions are distinguished
// for telemetry only and score exactly like user-initiated ones.
const (
	FinishedByUser    = "user"
	FinishedByTimeout = "timeout"
)

// localIDPrefix marks attempt identifiers minted on the device before the
// remote store has confirmed the attempt.
const localIDPrefix = "local-"

// AttemptID distinguishes remote identifiers from local-only ones minted
// while offline. Keeping the distinction in the type (rather than sniffing
// string prefixes all over the codebase) confines prefix handling to the
// parse/format boundary.
type AttemptID struct {
	value string
	local bool
}

// NewLocalAttemptID mints a fresh local-only attempt identifier.
func NewLocalAttemptID() AttemptID {
	return AttemptID{value: uuid.NewString(), local: true}
}

// RemoteAttemptID wraps an identifier confirmed by the remote store.
func RemoteAttemptID(id string) AttemptID {
	return AttemptID{value: id}
}

// ParseAttemptID recognizes the local marker on wire-format identifiers.
// This is the only place the prefix is inspected.
func ParseAttemptID(s string) AttemptID {
	if rest, ok := strings.CutPrefix(s, localIDPrefix); ok {
		return AttemptID{value: rest, local: true}
	}
	return AttemptID{value: s}
}

// IsLocal reports whether the identifier has not been confirmed remotely.
func (id AttemptID) IsLocal() bool { return id.local }

// IsZero reports whether the identifier is unset.
func (id AttemptID) IsZero() bool { return id.value == "" }

// String returns the wire form, with the local marker when applicable.
func (id AttemptID) String() string {
	if id.local {
		return localIDPrefix + id.value
	}
	return id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id AttemptID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AttemptID) UnmarshalText(b []byte) error {
	*id = ParseAttemptID(string(b))
	return nil
}

// Attempt is one instance of a user taking a quiz, from start to
// completion or abandonment.
//
// The ID column only ever holds remote identifiers: rows staged locally keep
// their local id inside the offline queue payload and receive a remote id
// when the sync coordinator promotes them. ClientRef carries the original
// local id so a retried sync upload is recognized by the unique constraint
// instead of producing a second row.
type Attempt struct {
	ID               string      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientRef        string      `gorm:"size:100;uniqueIndex" json:"client_ref,omitempty"`
	UserID           string      `gorm:"type:uuid;not null;index" json:"user_id"`
	QuizID           string      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	QuestionIDs      StringArray `gorm:"type:jsonb;not null" json:"question_ids"`
	TimeLimitSeconds int         `gorm:"not null;default:0" json:"time_limit_seconds"`
	Status           string      `gorm:"size:20;not null;default:'running';index" json:"status"`
	FinishedBy       string      `gorm:"size:20;not null;default:''" json:"finished_by,omitempty"`
	StartedAt        time.Time   `gorm:"not null" json:"started_at"`
	FinishedAt       *time.Time  `json:"finished_at,omitempty"`
	DurationSeconds  int         `gorm:"not null;default:0" json:"duration_seconds"`
	XPAwarded        bool        `gorm:"column:xp_awarded;not null;default:false" json:"xp_awarded"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Attempt) TableName() string {
	return "quiz_attempts"
}

// IsFinished reports whether the attempt reached a terminal status.
func (a *Attempt) IsFinished() bool {
	return a.Status == AttemptStatusCompleted || a.Status == AttemptStatusAbandoned
}
