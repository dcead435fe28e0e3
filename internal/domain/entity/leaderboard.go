package entity

import (
	"time"
)

// Leaderboard scope prefixes. The scope string fully qualifies a board:
// "global", "contest:<quizID>" or "season:<seasonID>".
const (
	ScopeGlobal        = "global"
	ScopeContestPrefix = "contest:"
	ScopeSeasonPrefix  = "season:"
)

// ContestScope builds the per-quiz leaderboard scope.
func ContestScope(quizID string) string { return ScopeContestPrefix + quizID }

// SeasonScope builds the per-season leaderboard scope.
func SeasonScope(seasonID string) string { return ScopeSeasonPrefix + seasonID }

// Season is a bounded competition window. At most one season is active at a
// time; XP earned while it is active also feeds its scoped board.
type Season struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null" json:"ends_at"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName defines the table name for GORM
func (Season) TableName() string {
	return "seasons"
}

// LeaderboardEntry is one user's standing inside a scope. Entries are
// recomputed from the xp_events ledger, never incremented blindly, so a
// rebuild after a partial failure always converges to the same totals.
type LeaderboardEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Scope     string    `gorm:"size:100;not null;uniqueIndex:idx_scope_user" json:"scope"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_scope_user" json:"user_id"`
	Username  string    `gorm:"size:50;not null" json:"username"`
	TotalXP   int       `gorm:"column:total_xp;not null;default:0;index" json:"total_xp"`
	Rank      int       `gorm:"-" json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
