package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for JSONB columns holding ordered string lists.
type StringArray []string

// Scan implements sql.Scanner so GORM can read JSONB data from the database.
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value implements driver.Valuer so GORM can write StringArray as JSONB.
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // empty JSON array instead of null
	}
	return json.Marshal(o)
}

// Option is a canonical answer option letter. The zero value means the
// answer key could not be resolved and the question is unscoreable.
type Option string

const (
	OptionA    Option = "a"
	OptionB    Option = "b"
	OptionC    Option = "c"
	OptionD    Option = "d"
	OptionNone Option = ""
)

// IsValid reports whether the option is one of the four answer letters.
func (o Option) IsValid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question is a multiple-choice question from the bank.
//
// The correct answer may live in one of three columns: correct_option is the
// canonical field, correct_answer and risposta were populated by two
// generations of CSV imports and may hold the letter with stray punctuation,
// different casing, or the full text of the right option. Resolution order
// and cleanup are owned by the normalizer; scoring never branches on which
// column happened to be populated.
type Question struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID     string    `gorm:"type:uuid;index" json:"subject_id"`
	Text          string    `gorm:"not null" json:"text"`
	OptionA       string    `gorm:"column:option_a;not null" json:"option_a"`
	OptionB       string    `gorm:"column:option_b;not null" json:"option_b"`
	OptionC       string    `gorm:"column:option_c;not null" json:"option_c"`
	OptionD       string    `gorm:"column:option_d;not null" json:"option_d"`
	CorrectOption string    `gorm:"size:255;not null;default:''" json:"-"` // hidden from clients
	CorrectAnswer string    `gorm:"size:255;not null;default:''" json:"-"` // legacy import column
	Risposta      string    `gorm:"size:255;not null;default:''" json:"-"` // legacy import column
	Explanation   *string   `json:"explanation,omitempty"`
	ImageURL      *string   `gorm:"size:500" json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Question) TableName() string {
	return "questions"
}

// OptionText returns the stored text for an option letter.
func (q *Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// RawAnswerKeys returns the stored answer-key candidates in resolution order.
func (q *Question) RawAnswerKeys() []string {
	return []string{q.CorrectOption, q.CorrectAnswer, q.Risposta}
}
