package repository

import (
	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// QuestionRepository defines methods for working with the question bank
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id string) (*entity.Question, error)
	// GetByIDs loads a batch of questions. The result preserves the order of
	// ids; missing ids are reported as an error.
	GetByIDs(ids []string) ([]entity.Question, error)
	GetBySubject(subjectID string, limit, offset int) ([]entity.Question, error)
	GetRandom(limit int) ([]entity.Question, error)
	Update(question *entity.Question) error
	Delete(id string) error
}
