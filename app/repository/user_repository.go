package repository

import (
	"github.com/ManuelReschke/PixelVault/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPlan returns the effective plan stored in the user's settings
func (r *userRepository) GetPlan(userID uint) (string, error) {
	us, err := models.GetOrCreateUserSettings(r.db, userID)
	if err != nil {
		return models.PlanFree, err
	}
	return us.EffectivePlan(), nil
}
