package entity

import (
	"time"
)

// XPEvent is one confirmed XP award, keyed by the attempt that earned it.
//
// The unique index on attempt_id is the only duplicate guard in the reward
// pipeline: a replayed sync upload or a concurrent drain hits the constraint
// and the insert degrades to a no-op. Rows are append-only.
type XPEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	AttemptID string    `gorm:"type:uuid;not null;uniqueIndex" json:"attempt_id"`
	QuizID    string    `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:50;not null;default:'attempt_completed'" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName defines the table name for GORM
func (XPEvent) TableName() string {
	return "xp_events"
}
