package entity

import (
	"time"
)

// AttemptAnswer is one question slot inside an attempt.
//
// CorrectSnapshot freezes the normalized answer key at answer time so a later
// edit of the question never rewrites history. An empty snapshot marks an
// unscoreable question (answer key could not be normalized): such slots are
// excluded from correct/wrong totals and surfaced in the invalid bucket.
type AttemptAnswer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AttemptID       string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question" json:"question_id"`
	Position        int       `gorm:"not null;default:0" json:"position"`
	SelectedOption  *string   `gorm:"size:1" json:"selected_option"` // nil = skipped
	CorrectSnapshot string    `gorm:"size:1;not null;default:''" json:"-"`
	IsCorrect       bool      `gorm:"not null;default:false" json:"is_correct"`
	IsLocked        bool      `gorm:"not null;default:false" json:"is_locked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// IsSkipped reports whether the user left the question blank.
func (a *AttemptAnswer) IsSkipped() bool {
	return a.SelectedOption == nil
}

// IsScoreable reports whether the slot carries a usable answer key.
func (a *AttemptAnswer) IsScoreable() bool {
	return a.CorrectSnapshot != ""
}

// Selected returns the chosen option, OptionNone when skipped.
func (a *AttemptAnswer) Selected() Option {
	if a.SelectedOption == nil {
		return OptionNone
	}
	return Option(*a.SelectedOption)
}
