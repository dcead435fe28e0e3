package entity

import (
	"time"
)

// Result is the finalized outcome of a completed attempt.
//
// Invalid counts questions whose answer key could not be normalized; they are
// excluded from the correct/wrong totals and from the pass-rule denominator
// but kept visible for data-quality follow-up. XPEarned stays zero until the
// reward ledger confirms the award.
type Result struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AttemptID     string     `gorm:"type:uuid;not null;uniqueIndex" json:"attempt_id"`
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	QuizID        string     `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Correct       int        `gorm:"not null;default:0" json:"correct"`
	Wrong         int        `gorm:"not null;default:0" json:"wrong"`
	Blank         int        `gorm:"not null;default:0" json:"blank"`
	Invalid       int        `gorm:"not null;default:0" json:"invalid"`
	Score         float64    `gorm:"type:numeric(8,2);not null;default:0" json:"score"`
	Passed        bool       `gorm:"not null;default:false" json:"passed"`
	PassThreshold int        `gorm:"not null;default:0" json:"pass_threshold"`
	XPEarned      int        `gorm:"column:xp_earned;not null;default:0" json:"xp_earned"`
	CompletedAt   time.Time  `gorm:"not null" json:"completed_at"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Result) TableName() string {
	return "results"
}

// TotalScoreable is the pass-rule denominator: every slot with a usable
// answer key, including blanks.
func (r *Result) TotalScoreable() int {
	return r.Correct + r.Wrong + r.Blank
}
