package repository

import (
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// AttemptStats aggregates the per-user counters the badge rules read. All
// figures are computed over completed attempts only.
type AttemptStats struct {
	CompletedCount  int64
	DistinctQuizzes int64
	HasPerfectScore bool  // 100% on an attempt with 10+ questions
	NightFinishes   int64 // attempts finished between 01:00 and 04:59 local time
}

// AttemptRepository defines methods for working with quiz attempts
type AttemptRepository interface {
	Create(attempt *entity.Attempt) error
	// CreateSynced persists an attempt together with its answers and result
	// in one transaction. A client_ref collision returns ErrDuplicateAttempt
	// with the id of the existing row, making retried uploads idempotent.
	CreateSynced(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) (existingID string, err error)
	GetByID(id string) (*entity.Attempt, error)
	GetByClientRef(clientRef string) (*entity.Attempt, error)
	GetRunningByUser(userID string) ([]entity.Attempt, error)
	SaveAnswer(answer *entity.AttemptAnswer) error
	GetAnswers(attemptID string) ([]entity.AttemptAnswer, error)
	// Finalize stores the terminal status, the answers and the result in one
	// transaction.
	Finalize(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) error
	// Abandon moves a running attempt to the abandoned terminal state. No
	// result row is ever written for it.
	Abandon(attemptID string, finishedAt time.Time) error
	// MarkXPAwarded flips xp_awarded, returning ErrNotFound when the flag
	// was already set (the update matched no rows).
	MarkXPAwarded(attemptID string) error
	GetStats(userID string, until time.Time) (*AttemptStats, error)
	ListByUser(userID string, limit, offset int) ([]entity.Attempt, int64, error)
}
