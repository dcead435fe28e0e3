package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// QuestionRepo implements repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo creates a new question repository
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create inserts a new question
func (r *QuestionRepo) Create(question *entity.Question) error {
	return r.db.Create(question).Error
}

// CreateBatch inserts a batch of questions
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Imported CSV dumps carry accented characters; force the encoding
		// inside the transaction.
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
}

// GetByID returns a question by ID
func (r *QuestionRepo) GetByID(id string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.Where("id = ?", id).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByIDs loads a batch of questions preserving the order of ids.
// A missing id is an error: an attempt cannot run with holes in its
// question list.
func (r *QuestionRepo) GetByIDs(ids []string) ([]entity.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []entity.Question
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]entity.Question, len(rows))
	for _, q := range rows {
		byID[q.ID] = q
	}

	ordered := make([]entity.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %s", apperrors.ErrNotFound, id)
		}
		ordered = append(ordered, q)
	}
	return ordered, nil
}

// GetBySubject returns questions for a subject with pagination
func (r *QuestionRepo) GetBySubject(subjectID string, limit, offset int) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("subject_id = ?", subjectID).
		Limit(limit).Offset(offset).Order("created_at").
		Find(&questions).Error
	return questions, err
}

// GetRandom returns random questions from the bank
func (r *QuestionRepo) GetRandom(limit int) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Order("RANDOM()").Limit(limit).Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Update saves question changes
func (r *QuestionRepo) Update(question *entity.Question) error {
	return r.db.Save(question).Error
}

// Delete removes a question
func (r *QuestionRepo) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&entity.Question{}).Error
}
