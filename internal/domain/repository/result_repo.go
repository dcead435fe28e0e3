package repository

import (
	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// ResultRepository defines methods for working with finalized results
type ResultRepository interface {
	Save(result *entity.Result) error
	GetByAttemptID(attemptID string) (*entity.Result, error)
	GetUserResults(userID string, limit, offset int) ([]entity.Result, int64, error)
	GetQuizResults(quizID string, limit, offset int) ([]entity.Result, int64, error)
}
