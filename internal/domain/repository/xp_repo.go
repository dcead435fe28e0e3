package repository

import (
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// XPRepository defines methods for the append-only XP ledger
type XPRepository interface {
	// Insert appends an event. A duplicate attempt_id returns
	// ErrDuplicateEvent and leaves the ledger untouched.
	Insert(event *entity.XPEvent) error
	ExistsForAttempt(attemptID string) (bool, error)
	TotalForUser(userID string) (int, error)
	// TotalForUserQuiz sums the user's confirmed XP earned on one quiz,
	// feeding the contest-scoped leaderboard.
	TotalForUserQuiz(userID, quizID string) (int, error)
	// TotalForUserSince sums the user's confirmed XP from events created at
	// or after since, feeding the season-scoped leaderboard.
	TotalForUserSince(userID string, since time.Time) (int, error)
	// TotalsSince sums confirmed XP per user for events created at or after
	// since; a zero time covers the whole ledger. Used for board rebuilds.
	TotalsSince(since time.Time) (map[string]int, error)
	ListForUser(userID string, limit, offset int) ([]entity.XPEvent, error)
}
