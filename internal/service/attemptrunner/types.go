package attemptrunner

import (
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// State of a live attempt session
type State string

const (
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateReviewing    State = "reviewing"
	StateCompleted    State = "completed"
	StateAbandoned    State = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Weights is the per-question scoring scheme.
type Weights struct {
	Correct float64
	Wrong   float64
	Blank   float64
}

// DefaultWeights is the neutral scheme used when the quiz defines none:
// one point per correct answer, no penalty, no blank credit.
func DefaultWeights() Weights {
	return Weights{Correct: 1}
}

// Config carries the per-attempt run settings resolved from the quiz row.
type Config struct {
	Weights Weights
	// MinCorrect, when set, replaces the absolute-majority pass rule.
	MinCorrect *int
	// TimeLimit of zero means untimed.
	TimeLimit time.Duration
}

// ConfigForQuiz resolves the run settings from a quiz row, falling back to
// the neutral weights when the row carries none.
func ConfigForQuiz(quiz *entity.Quiz) Config {
	cfg := Config{
		Weights: Weights{
			Correct: quiz.PointsCorrect,
			Wrong:   quiz.PointsWrong,
			Blank:   quiz.PointsBlank,
		},
		MinCorrect: quiz.PassThreshold(),
		TimeLimit:  quiz.TimeLimit(),
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return cfg
}

// Tally buckets the answer sheet of a finished attempt. Invalid counts
// unscoreable slots; they never land in Correct/Wrong/Blank.
type Tally struct {
	Correct int
	Wrong   int
	Blank   int
	Invalid int
}

// TotalScoreable is the pass-rule denominator.
func (t Tally) TotalScoreable() int {
	return t.Correct + t.Wrong + t.Blank
}

// Session is the serializable form of a runner, written to the local store
// after every accepted mutation so a process restart resumes mid-attempt.
type Session struct {
	AttemptID   entity.AttemptID       `json:"attempt_id"`
	UserID      string                 `json:"user_id"`
	QuizID      string                 `json:"quiz_id"`
	State       State                  `json:"state"`
	QuestionIDs []string               `json:"question_ids"`
	Weights     Weights                `json:"weights"`
	MinCorrect  *int                   `json:"min_correct,omitempty"`
	TimeLimit   time.Duration          `json:"time_limit"`
	StartedAt   time.Time              `json:"started_at"`
	Answers     []entity.AttemptAnswer `json:"answers"`
}

// FinalSheet is what Finish produces: the complete answer sheet (blanks
// filled in) plus the scored outcome.
type FinalSheet struct {
	Answers    []entity.AttemptAnswer
	Outcome    Outcome
	FinishedBy string
	FinishedAt time.Time
	Duration   time.Duration
}
