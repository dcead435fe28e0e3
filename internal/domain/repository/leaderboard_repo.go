package repository

import (
	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// LeaderboardRepository defines methods for persisted leaderboard standings
type LeaderboardRepository interface {
	// UpsertEntry sets the user's total inside a scope to an absolute value
	// recomputed from the ledger. Never used for blind increments.
	UpsertEntry(entry *entity.LeaderboardEntry) error
	GetEntries(scope string, limit, offset int) ([]entity.LeaderboardEntry, int64, error)
	// GetUserRank returns the 1-based rank, or ErrNotFound when the user has
	// no entry in the scope.
	GetUserRank(scope, userID string) (int, error)
	GetActiveSeason() (*entity.Season, error)
	CreateSeason(season *entity.Season) error
}

// BadgeRepository defines methods for badge awards
type BadgeRepository interface {
	// Award grants a badge. Re-awarding is a silent no-op; the bool reports
	// whether a new row was written.
	Award(userID, badgeID string) (bool, error)
	GetUserBadges(userID string) ([]entity.UserBadge, error)
}
