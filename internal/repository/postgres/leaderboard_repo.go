package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// LeaderboardRepo implements repository.LeaderboardRepository
type LeaderboardRepo struct {
	db *gorm.DB
}

// NewLeaderboardRepo creates a new leaderboard repository
func NewLeaderboardRepo(db *gorm.DB) *LeaderboardRepo {
	return &LeaderboardRepo{db: db}
}

// UpsertEntry writes the recomputed absolute total for a user in a scope
func (r *LeaderboardRepo) UpsertEntry(entry *entity.LeaderboardEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "total_xp", "updated_at"}),
	}).Create(entry).Error
}

// GetEntries returns a page of the scope's standings plus the total count.
// Rank is derived from the page position; ties share the order the database
// returns them in (total_xp DESC, then earliest update first).
func (r *LeaderboardRepo) GetEntries(scope string, limit, offset int) ([]entity.LeaderboardEntry, int64, error) {
	var entries []entity.LeaderboardEntry
	var total int64

	query := r.db.Model(&entity.LeaderboardEntry{}).Where("scope = ?", scope)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("total_xp DESC, updated_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	for i := range entries {
		entries[i].Rank = offset + i + 1
	}
	return entries, total, nil
}

// GetUserRank returns the user's 1-based rank within a scope
func (r *LeaderboardRepo) GetUserRank(scope, userID string) (int, error) {
	var entry entity.LeaderboardEntry
	err := r.db.Where("scope = ? AND user_id = ?", scope, userID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.ErrNotFound
		}
		return 0, err
	}

	var ahead int64
	err = r.db.Model(&entity.LeaderboardEntry{}).
		Where("scope = ? AND total_xp > ?", scope, entry.TotalXP).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

// GetActiveSeason returns the season currently marked active
func (r *LeaderboardRepo) GetActiveSeason() (*entity.Season, error) {
	var season entity.Season
	err := r.db.Where("is_active = ?", true).First(&season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &season, nil
}

// CreateSeason inserts a new season
func (r *LeaderboardRepo) CreateSeason(season *entity.Season) error {
	return r.db.Create(season).Error
}
