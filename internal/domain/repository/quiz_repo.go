package repository

import (
	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// QuizFilters defines search filters for quiz listings
type QuizFilters struct {
	Search       string // full-text search on title/description
	OfficialOnly bool
}

// QuizRepository defines methods for working with quizzes
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id string) (*entity.Quiz, error)
	GetBySlug(slug string) (*entity.Quiz, error)
	Update(quiz *entity.Quiz) error
	List(limit, offset int) ([]entity.Quiz, error)
	ListWithFilters(filters QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) // also returns total count
	Delete(id string) error
}
