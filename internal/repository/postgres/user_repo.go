package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user
func (r *UserRepo) Create(user *entity.User) error {
	return r.db.Create(user).Error
}

// GetByID returns a user by ID
func (r *UserRepo) GetByID(id string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername returns a user by username
func (r *UserRepo) GetByUsername(username string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update saves user changes
func (r *UserRepo) Update(user *entity.User) error {
	return r.db.Save(user).Error
}

// IncrementXP atomically adds delta to total_xp via gorm.Expr
func (r *UserRepo) IncrementXP(userID string, delta int) error {
	result := r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		UpdateColumn("total_xp", gorm.Expr("total_xp + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns users with pagination
func (r *UserRepo) List(limit, offset int) ([]entity.User, error) {
	var users []entity.User
	err := r.db.Limit(limit).Offset(offset).Order("created_at").Find(&users).Error
	return users, err
}
