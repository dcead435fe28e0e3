package entity

import (
	"time"
)

// Quiz is a configured exam simulation: which questions it draws from, the
// time limit, the per-question scoring weights and the pass rule.
type Quiz struct {
	ID               string      `gorm:"type:uuid;primaryKey" json:"id"`
	Slug             string      `gorm:"size:150;not null;uniqueIndex" json:"slug"`
	Title            string      `gorm:"size:200;not null" json:"title"`
	Description      string      `gorm:"not null;default:''" json:"description"`
	QuestionIDs      StringArray `gorm:"type:jsonb;not null" json:"question_ids"`
	QuestionCount    int         `gorm:"not null;default:0" json:"question_count"`
	TimeLimitMinutes int         `gorm:"not null;default:0" json:"time_limit_minutes"` // 0 = untimed

	// Scoring configuration read by the run flow. Weights default to the
	// neutral {1, 0, 0} scheme when unset on the row.
	PointsCorrect float64 `gorm:"not null;default:1" json:"points_correct"`
	PointsWrong   float64 `gorm:"not null;default:0" json:"points_wrong"`
	PointsBlank   float64 `gorm:"not null;default:0" json:"points_blank"`

	// Pass rule: the explicit threshold applies only when
	// use_custom_pass_threshold is set, otherwise the absolute-majority
	// default (floor(total/2)+1) is used.
	UseCustomPassThreshold bool `gorm:"not null;default:false" json:"use_custom_pass_threshold"`
	MinCorrectForPass      *int `json:"min_correct_for_pass,omitempty"`

	IsOfficial bool      `gorm:"not null;default:false" json:"is_official"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// PassThreshold returns the explicit minimum-correct threshold, or nil when
// the quiz relies on the default rule.
func (q *Quiz) PassThreshold() *int {
	if q.UseCustomPassThreshold && q.MinCorrectForPass != nil {
		return q.MinCorrectForPass
	}
	return nil
}

// TimeLimit returns the attempt time limit, zero when untimed.
func (q *Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}
