package entity

import (
	"time"
)

// Badge identifiers. The set is fixed in code; the user_badges table only
// records which ones a user has earned.
const (
	BadgePrimoPasso = "primo_passo" // first completed attempt
	BadgeSecchione  = "secchione"   // 100% on an attempt with 10+ questions
	BadgeVeterano   = "veterano"    // 1000+ total XP
	BadgeHubMaster  = "hub_master"  // completed attempts on 5 distinct quizzes
	BadgeNottambulo = "nottambulo"  // 5 attempts finished between 01:00 and 04:59
)

// AllBadges lists every known badge identifier.
var AllBadges = []string{
	BadgePrimoPasso,
	BadgeSecchione,
	BadgeVeterano,
	BadgeHubMaster,
	BadgeNottambulo,
}

// UserBadge records that a user earned a badge. Awards are idempotent: the
// unique index turns a repeated grant into a no-op.
type UserBadge struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   string    `gorm:"size:50;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	EarnedAt  time.Time `gorm:"not null" json:"earned_at"`
	CreatedAt time.Time `json:"-"`
}

// TableName defines the table name for GORM
func (UserBadge) TableName() string {
	return "user_badges"
}
