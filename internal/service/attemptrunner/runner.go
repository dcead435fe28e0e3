package attemptrunner

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// Runner drives one exam session from start to completion. All methods are
// mutex-guarded: answer submission may race the timeout check and the sync
// machinery, but a runner is never shared between users.
//
// The runner is deliberately free of I/O. Persistence of snapshots, queueing
// and reward side effects belong to the services driving it.
type Runner struct {
	mu sync.Mutex

	state     State
	attemptID entity.AttemptID
	userID    string
	quizID    string
	cfg       Config

	order     []string
	questions map[string]*entity.Question
	keys      map[string]entity.Option
	answers   map[string]*entity.AttemptAnswer

	startedAt time.Time
	now       func() time.Time
}

// New creates a running session over the quiz's question snapshot. The
// attempt must present at least one question.
func New(attemptID entity.AttemptID, userID string, quiz *entity.Quiz, questions []entity.Question, cfg Config, now func() time.Time) (*Runner, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz %s resolves to no questions", apperrors.ErrValidation, quiz.ID)
	}
	if now == nil {
		now = time.Now
	}

	r := &Runner{
		state:     StateInitializing,
		attemptID: attemptID,
		userID:    userID,
		quizID:    quiz.ID,
		cfg:       cfg,
		order:     make([]string, 0, len(questions)),
		questions: make(map[string]*entity.Question, len(questions)),
		keys:      make(map[string]entity.Option, len(questions)),
		answers:   make(map[string]*entity.AttemptAnswer),
		now:       now,
	}
	for i := range questions {
		q := &questions[i]
		r.order = append(r.order, q.ID)
		r.questions[q.ID] = q
		r.keys[q.ID] = CanonicalAnswerKey(q)
	}

	r.startedAt = now()
	r.state = StateRunning
	return r, nil
}

// Resume rebuilds a runner from a persisted session and the re-fetched
// question snapshot.
func Resume(sess Session, questions []entity.Question, now func() time.Time) (*Runner, error) {
	if sess.AttemptID.IsZero() || sess.UserID == "" || sess.QuizID == "" {
		return nil, fmt.Errorf("%w: missing identity fields", apperrors.ErrIncompleteSession)
	}
	if sess.State != StateRunning && sess.State != StateReviewing {
		return nil, fmt.Errorf("%w: state %s is not resumable", apperrors.ErrInvalidState, sess.State)
	}

	quiz := &entity.Quiz{ID: sess.QuizID}
	r, err := New(sess.AttemptID, sess.UserID, quiz, questions, Config{
		Weights:    sess.Weights,
		MinCorrect: sess.MinCorrect,
		TimeLimit:  sess.TimeLimit,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIncompleteSession, err)
	}

	r.state = sess.State
	r.startedAt = sess.StartedAt
	for i := range sess.Answers {
		a := sess.Answers[i]
		if _, ok := r.questions[a.QuestionID]; !ok {
			return nil, fmt.Errorf("%w: answer for unknown question %s", apperrors.ErrIncompleteSession, a.QuestionID)
		}
		r.answers[a.QuestionID] = &a
	}
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// AttemptID returns the session's attempt identifier.
func (r *Runner) AttemptID() entity.AttemptID { return r.attemptID }

// UserID returns the owning user.
func (r *Runner) UserID() string { return r.userID }

// QuizID returns the quiz being attempted.
func (r *Runner) QuizID() string { return r.quizID }

// StartedAt returns the session start time.
func (r *Runner) StartedAt() time.Time { return r.startedAt }

// Config returns the resolved run settings.
func (r *Runner) Config() Config { return r.cfg }

// Remaining returns the time left, or zero for untimed attempts.
func (r *Runner) Remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.TimeLimit == 0 {
		return 0
	}
	left := r.cfg.TimeLimit - r.now().Sub(r.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// SubmitAnswer records the user's choice for a question. nil means skipped.
// Resubmission overwrites a prior unlocked answer; a locked one rejects.
func (r *Runner) SubmitAnswer(questionID string, selected *string) (*entity.AttemptAnswer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return nil, fmt.Errorf("%w: cannot answer in state %s", apperrors.ErrInvalidState, r.state)
	}
	if r.expired() {
		return nil, fmt.Errorf("%w: time limit exceeded", apperrors.ErrInvalidState)
	}

	position, ok := r.position(questionID)
	if !ok {
		return nil, fmt.Errorf("%w: question %s is not part of the attempt", apperrors.ErrValidation, questionID)
	}
	if existing, ok := r.answers[questionID]; ok && existing.IsLocked {
		return nil, fmt.Errorf("%w: question %s is locked", apperrors.ErrInvalidState, questionID)
	}

	var selectedOption *string
	if selected != nil {
		opt := NormalizeOption(*selected)
		if opt == entity.OptionNone {
			return nil, fmt.Errorf("%w: %q is not an option letter", apperrors.ErrValidation, *selected)
		}
		s := string(opt)
		selectedOption = &s
	}

	key := r.keys[questionID]
	answer := &entity.AttemptAnswer{
		AttemptID:       r.attemptID.String(),
		QuestionID:      questionID,
		Position:        position,
		SelectedOption:  selectedOption,
		CorrectSnapshot: string(key),
		IsCorrect:       key != entity.OptionNone && selectedOption != nil && entity.Option(*selectedOption) == key,
	}
	r.answers[questionID] = answer

	copied := *answer
	return &copied, nil
}

// LockAnswer freezes an answered question for instant checking. The returned
// copy carries the correctness flag the caller may now reveal.
func (r *Runner) LockAnswer(questionID string) (*entity.AttemptAnswer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return nil, fmt.Errorf("%w: cannot lock in state %s", apperrors.ErrInvalidState, r.state)
	}
	answer, ok := r.answers[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: question %s has no answer to lock", apperrors.ErrInvalidState, questionID)
	}
	answer.IsLocked = true

	copied := *answer
	return &copied, nil
}

// LockAndAdvance moves the session into review: every recorded answer is
// frozen and only finish or abandon remain.
func (r *Runner) LockAndAdvance() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return fmt.Errorf("%w: cannot review in state %s", apperrors.ErrInvalidState, r.state)
	}
	for _, a := range r.answers {
		a.IsLocked = true
	}
	r.state = StateReviewing
	return nil
}

// Finish completes the attempt on the user's request. Partial completion is
// legal: unanswered questions count as skipped.
func (r *Runner) Finish() (*FinalSheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishLocked(entity.FinishedByUser)
}

// FinishIfExpired force-completes a timed-out attempt, all unanswered
// questions treated as skipped. Returns (nil, nil) while the attempt is
// within its limit or already terminal. Forced completions score exactly
// like user ones; only FinishedBy differs.
func (r *Runner) FinishIfExpired() (*FinalSheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Terminal() || !r.expired() {
		return nil, nil
	}
	return r.finishLocked(entity.FinishedByTimeout)
}

func (r *Runner) finishLocked(finishedBy string) (*FinalSheet, error) {
	if r.state != StateRunning && r.state != StateReviewing {
		return nil, fmt.Errorf("%w: cannot finish in state %s", apperrors.ErrInvalidState, r.state)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("%w: no questions were presented", apperrors.ErrIncompleteSession)
	}
	r.state = StateReviewing

	sheet := make([]entity.AttemptAnswer, 0, len(r.order))
	for pos, questionID := range r.order {
		if a, ok := r.answers[questionID]; ok {
			a.IsLocked = true
			sheet = append(sheet, *a)
			continue
		}
		sheet = append(sheet, entity.AttemptAnswer{
			AttemptID:       r.attemptID.String(),
			QuestionID:      questionID,
			Position:        pos,
			CorrectSnapshot: string(r.keys[questionID]),
			IsLocked:        true,
		})
	}

	outcome := Evaluate(sheet, r.cfg)
	if outcome.Tally.TotalScoreable() == 0 {
		// Refusing to finalize beats fabricating a result; the session stays
		// in review so the caller can surface the data-quality problem.
		return nil, fmt.Errorf("%w: attempt %s has no scoreable questions", apperrors.ErrUnscoreableQuestion, r.attemptID)
	}

	finishedAt := r.now()
	r.state = StateCompleted
	return &FinalSheet{
		Answers:    sheet,
		Outcome:    outcome,
		FinishedBy: finishedBy,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(r.startedAt),
	}, nil
}

// Abandon terminates the session without producing a result. No XP,
// leaderboard or badge side effects may follow.
func (r *Runner) Abandon() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning && r.state != StateReviewing {
		return fmt.Errorf("%w: cannot abandon in state %s", apperrors.ErrInvalidState, r.state)
	}
	r.state = StateAbandoned
	return nil
}

// Export serializes the session for the local-store snapshot.
func (r *Runner) Export() Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	answers := make([]entity.AttemptAnswer, 0, len(r.answers))
	for _, questionID := range r.order {
		if a, ok := r.answers[questionID]; ok {
			answers = append(answers, *a)
		}
	}
	order := make([]string, len(r.order))
	copy(order, r.order)
	return Session{
		AttemptID:   r.attemptID,
		UserID:      r.userID,
		QuizID:      r.quizID,
		State:       r.state,
		QuestionIDs: order,
		Weights:     r.cfg.Weights,
		MinCorrect:  r.cfg.MinCorrect,
		TimeLimit:   r.cfg.TimeLimit,
		StartedAt:   r.startedAt,
		Answers:     answers,
	}
}

// Questions returns the presented questions in order.
func (r *Runner) Questions() []entity.Question {
	out := make([]entity.Question, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.questions[id])
	}
	return out
}

// QuestionOrder returns the presented question ids in order.
func (r *Runner) QuestionOrder() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Runner) expired() bool {
	return r.cfg.TimeLimit > 0 && r.now().Sub(r.startedAt) >= r.cfg.TimeLimit
}

func (r *Runner) position(questionID string) (int, bool) {
	for i, id := range r.order {
		if id == questionID {
			return i, true
		}
	}
	return 0, false
}
