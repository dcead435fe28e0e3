package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// QuizRepo implements repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo creates a new quiz repository
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create inserts a new quiz
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	return r.db.Create(quiz).Error
}

// GetByID returns a quiz by ID
func (r *QuizRepo) GetByID(id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("id = ?", id).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetBySlug returns a quiz by its URL slug
func (r *QuizRepo) GetBySlug(slug string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("slug = ?", slug).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// Update saves quiz changes
func (r *QuizRepo) Update(quiz *entity.Quiz) error {
	return r.db.Save(quiz).Error
}

// List returns quizzes with pagination
func (r *QuizRepo) List(limit, offset int) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

// ListWithFilters returns quizzes matching the filters plus the total count
func (r *QuizRepo) ListWithFilters(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	var quizzes []entity.Quiz
	var total int64

	query := r.db.Model(&entity.Quiz{})

	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}

	if filters.OfficialOnly {
		query = query.Where("is_official = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Limit(limit).Offset(offset).Order("created_at DESC").Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

// Delete removes a quiz
func (r *QuizRepo) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&entity.Quiz{}).Error
}

// isUniqueViolation detects a Postgres unique violation (23505) for both the
// pgconn and lib/pq drivers
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
