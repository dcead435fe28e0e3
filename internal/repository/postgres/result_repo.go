package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// ResultRepo implements repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save inserts a finalized result
func (r *ResultRepo) Save(result *entity.Result) error {
	return r.db.Create(result).Error
}

// GetByAttemptID returns the result for an attempt
func (r *ResultRepo) GetByAttemptID(attemptID string) (*entity.Result, error) {
	var result entity.Result
	err := r.db.Where("attempt_id = ?", attemptID).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// GetUserResults returns a user's results with pagination plus the total count
func (r *ResultRepo) GetUserResults(userID string, limit, offset int) ([]entity.Result, int64, error) {
	var results []entity.Result
	var total int64

	// Transaction keeps the page and the total consistent with each other
	tx := r.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, 0, tx.Error
	}

	err := tx.Model(&entity.Result{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	err = tx.Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// GetQuizResults returns a quiz's results with pagination plus the total count
func (r *ResultRepo) GetQuizResults(quizID string, limit, offset int) ([]entity.Result, int64, error) {
	var results []entity.Result
	var total int64

	tx := r.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, 0, tx.Error
	}

	err := tx.Model(&entity.Result{}).Where("quiz_id = ?", quizID).Count(&total).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	err = tx.Where("quiz_id = ?", quizID).
		Order("score DESC, completed_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}
