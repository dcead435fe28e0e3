package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// BadgeRepo implements repository.BadgeRepository
type BadgeRepo struct {
	db *gorm.DB
}

// NewBadgeRepo creates a new badge repository
func NewBadgeRepo(db *gorm.DB) *BadgeRepo {
	return &BadgeRepo{db: db}
}

// Award grants a badge with ON CONFLICT DO NOTHING; re-awarding is a silent
// no-op. The returned bool reports whether a new row was written.
func (r *BadgeRepo) Award(userID, badgeID string) (bool, error) {
	badge := entity.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: time.Now(),
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(&badge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetUserBadges returns the user's earned badges, oldest first
func (r *BadgeRepo) GetUserBadges(userID string) ([]entity.UserBadge, error) {
	var badges []entity.UserBadge
	err := r.db.Where("user_id = ?", userID).
		Order("earned_at").
		Find(&badges).Error
	return badges, err
}
