package entity

import (
	"time"
)

// User is a registered learner. Authentication lives in a separate identity
// service; this store only keeps the profile fields the progression features
// read, with total_xp maintained as a denormalized sum of xp_events.
type User struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	ProfilePicture string    `gorm:"size:255;not null;default:''" json:"profile_picture"`
	TotalXP        int       `gorm:"column:total_xp;not null;default:0" json:"total_xp"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (User) TableName() string {
	return "users"
}

// Level derives the user level from accumulated XP: 100 XP per level,
// starting at level 1.
func (u *User) Level() int {
	return u.TotalXP/100 + 1
}

// XPIntoLevel returns the XP accumulated within the current level.
func (u *User) XPIntoLevel() int {
	return u.TotalXP % 100
}
