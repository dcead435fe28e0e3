package repository

import (
	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// UserRepository defines methods for working with users
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id string) (*entity.User, error)
	GetByUsername(username string) (*entity.User, error)
	Update(user *entity.User) error
	// IncrementXP atomically adds delta to total_xp.
	IncrementXP(userID string, delta int) error
	List(limit, offset int) ([]entity.User, error)
}
