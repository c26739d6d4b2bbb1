package repository

import (
	"context"

	"inkpost/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads account data needed for authorization.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetRole(ctx context.Context, id uint) (models.Role, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetRole(ctx context.Context, id uint) (models.Role, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "role").First(&user, id).Error; err != nil {
		return models.RoleUser, notFoundOr(err, "User", id)
	}
	return user.Role, nil
}
