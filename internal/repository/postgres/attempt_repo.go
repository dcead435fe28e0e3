package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// AttemptRepo implements repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo creates a new attempt repository
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create inserts a new running attempt
func (r *AttemptRepo) Create(attempt *entity.Attempt) error {
	return r.db.Create(attempt).Error
}

// CreateSynced persists an uploaded offline attempt with its answers and
// result in one transaction.
//
// The unique index on client_ref makes this idempotent: when a retried
// upload collides, the id of the existing row is returned together with
// repository.ErrDuplicateAttempt so the caller can confirm the mapping
// instead of duplicating the attempt.
func (r *AttemptRepo) CreateSynced(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) (string, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		result.AttemptID = attempt.ID
		return tx.Create(result).Error
	})
	if err == nil {
		return attempt.ID, nil
	}

	if !isUniqueViolation(err) {
		return "", err
	}

	// Collision on client_ref: look up the row the earlier upload created.
	existing, lookupErr := r.GetByClientRef(attempt.ClientRef)
	if lookupErr != nil {
		return "", fmt.Errorf("attempt for client_ref %s conflicts but cannot be loaded: %w", attempt.ClientRef, lookupErr)
	}

	// An attempt started online and finished offline collides while still
	// running: finalize the existing row with the uploaded sheet.
	if existing.Status == entity.AttemptStatusRunning {
		finalized := *attempt
		finalized.ID = existing.ID
		for i := range answers {
			answers[i].AttemptID = existing.ID
		}
		if err := r.Finalize(&finalized, answers, result); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	return existing.ID, repository.ErrDuplicateAttempt
}

// GetByID returns an attempt by ID
func (r *AttemptRepo) GetByID(id string) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.Where("id = ?", id).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetByClientRef returns the attempt created for a device-minted reference
func (r *AttemptRepo) GetByClientRef(clientRef string) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.Where("client_ref = ?", clientRef).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetRunningByUser returns the user's attempts still in the running state
func (r *AttemptRepo) GetRunningByUser(userID string) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("user_id = ? AND status = ?", userID, entity.AttemptStatusRunning).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// SaveAnswer upserts one answer slot. The (attempt_id, question_id) unique
// index routes a re-answer to an update of the existing row.
func (r *AttemptRepo) SaveAnswer(answer *entity.AttemptAnswer) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Create(answer).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		return tx.Model(&entity.AttemptAnswer{}).
			Where("attempt_id = ? AND question_id = ?", answer.AttemptID, answer.QuestionID).
			Updates(map[string]interface{}{
				"selected_option":  answer.SelectedOption,
				"correct_snapshot": answer.CorrectSnapshot,
				"is_correct":       answer.IsCorrect,
				"is_locked":        answer.IsLocked,
			}).Error
	})
}

// GetAnswers returns the attempt's answers ordered by position
func (r *AttemptRepo) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	var answers []entity.AttemptAnswer
	err := r.db.Where("attempt_id = ?", attemptID).
		Order("position").
		Find(&answers).Error
	return answers, err
}

// Finalize stores the terminal attempt state, the answers and the result in
// one transaction
func (r *AttemptRepo) Finalize(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Attempt{}).
			Where("id = ? AND status = ?", attempt.ID, entity.AttemptStatusRunning).
			Updates(map[string]interface{}{
				"status":           attempt.Status,
				"finished_by":      attempt.FinishedBy,
				"finished_at":      attempt.FinishedAt,
				"duration_seconds": attempt.DurationSeconds,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: attempt %s is not running", apperrors.ErrInvalidState, attempt.ID)
		}

		for i := range answers {
			if err := r.saveAnswerTx(tx, &answers[i]); err != nil {
				return err
			}
		}

		if result != nil {
			result.AttemptID = attempt.ID
			if err := tx.Create(result).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AttemptRepo) saveAnswerTx(tx *gorm.DB, answer *entity.AttemptAnswer) error {
	err := tx.Create(answer).Error
	if err == nil || !isUniqueViolation(err) {
		return err
	}
	return tx.Model(&entity.AttemptAnswer{}).
		Where("attempt_id = ? AND question_id = ?", answer.AttemptID, answer.QuestionID).
		Updates(map[string]interface{}{
			"selected_option":  answer.SelectedOption,
			"correct_snapshot": answer.CorrectSnapshot,
			"is_correct":       answer.IsCorrect,
			"is_locked":        answer.IsLocked,
		}).Error
}

// Abandon moves a running attempt to the abandoned terminal state
func (r *AttemptRepo) Abandon(attemptID string, finishedAt time.Time) error {
	result := r.db.Model(&entity.Attempt{}).
		Where("id = ? AND status = ?", attemptID, entity.AttemptStatusRunning).
		Updates(map[string]interface{}{
			"status":      entity.AttemptStatusAbandoned,
			"finished_at": finishedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: attempt %s is not running", apperrors.ErrInvalidState, attemptID)
	}
	return nil
}

// MarkXPAwarded flips xp_awarded exactly once; a second call matches no rows
// and reports ErrNotFound
func (r *AttemptRepo) MarkXPAwarded(attemptID string) error {
	result := r.db.Model(&entity.Attempt{}).
		Where("id = ? AND xp_awarded = ?", attemptID, false).
		UpdateColumn("xp_awarded", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetStats aggregates the completed-attempt counters read by the badge rules
func (r *AttemptRepo) GetStats(userID string, until time.Time) (*repository.AttemptStats, error) {
	stats := &repository.AttemptStats{}
	base := r.db.Model(&entity.Attempt{}).
		Where("user_id = ? AND status = ? AND finished_at <= ?", userID, entity.AttemptStatusCompleted, until)

	if err := base.Session(&gorm.Session{}).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}

	if err := base.Session(&gorm.Session{}).
		Distinct("quiz_id").
		Count(&stats.DistinctQuizzes).Error; err != nil {
		return nil, err
	}

	// 100% on a long enough attempt: nothing wrong, nothing blank, nothing
	// in the invalid bucket.
	var perfect int64
	err := r.db.Model(&entity.Result{}).
		Where("user_id = ? AND wrong = 0 AND blank = 0 AND invalid = 0 AND correct >= ?", userID, 10).
		Count(&perfect).Error
	if err != nil {
		return nil, err
	}
	stats.HasPerfectScore = perfect > 0

	err = base.Session(&gorm.Session{}).
		Where("EXTRACT(HOUR FROM finished_at) >= 1 AND EXTRACT(HOUR FROM finished_at) < 5").
		Count(&stats.NightFinishes).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// ListByUser returns the user's attempts with pagination plus the total count
func (r *AttemptRepo) ListByUser(userID string, limit, offset int) ([]entity.Attempt, int64, error) {
	var attempts []entity.Attempt
	var total int64

	query := r.db.Model(&entity.Attempt{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}
