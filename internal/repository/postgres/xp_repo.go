package postgres

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
)

// XPRepo implements repository.XPRepository
type XPRepo struct {
	db *gorm.DB
}

// NewXPRepo creates a new XP ledger repository
func NewXPRepo(db *gorm.DB) *XPRepo {
	return &XPRepo{db: db}
}

// Insert appends an event to the ledger. The unique index on attempt_id is
// the duplicate guard: a collision comes back as ErrDuplicateEvent and the
// caller treats the reward as already granted.
func (r *XPRepo) Insert(event *entity.XPEvent) error {
	err := r.db.Create(event).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: attempt %s", repository.ErrDuplicateEvent, event.AttemptID)
	}
	return err
}

// ExistsForAttempt reports whether the attempt already has a ledger entry
func (r *XPRepo) ExistsForAttempt(attemptID string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.XPEvent{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	return count > 0, err
}

// TotalForUser sums the user's confirmed XP from the ledger
func (r *XPRepo) TotalForUser(userID string) (int, error) {
	var total int64
	err := r.db.Model(&entity.XPEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return int(total), err
}

// TotalForUserQuiz sums the user's confirmed XP earned on one quiz
func (r *XPRepo) TotalForUserQuiz(userID, quizID string) (int, error) {
	var total int64
	err := r.db.Model(&entity.XPEvent{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return int(total), err
}

// TotalForUserSince sums the user's confirmed XP from events created at or
// after since
func (r *XPRepo) TotalForUserSince(userID string, since time.Time) (int, error) {
	var total int64
	err := r.db.Model(&entity.XPEvent{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return int(total), err
}

// TotalsSince sums confirmed XP per user for events created at or after
// since. A zero time covers the whole ledger.
func (r *XPRepo) TotalsSince(since time.Time) (map[string]int, error) {
	type row struct {
		UserID string
		Total  int
	}

	query := r.db.Model(&entity.XPEvent{}).
		Select("user_id, COALESCE(SUM(amount), 0) AS total").
		Group("user_id")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]int, len(rows))
	for _, r := range rows {
		totals[r.UserID] = r.Total
	}
	return totals, nil
}

// ListForUser returns the user's ledger entries, newest first
func (r *XPRepo) ListForUser(userID string, limit, offset int) ([]entity.XPEvent, error) {
	var events []entity.XPEvent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}
