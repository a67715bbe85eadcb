package repository

import (
	"github.com/ManuelReschke/PixelVault/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetPlan(userID uint) (string, error)
}

// ShopItemRepository defines the interface for shop catalog reads and admin writes
type ShopItemRepository interface {
	Create(item *models.ShopItem) error
	GetByID(id uint) (*models.ShopItem, error)
	ListActive() ([]models.ShopItem, error)
	Update(item *models.ShopItem) error
}

// PurchaseRepository defines the interface for user purchase lookups
type PurchaseRepository interface {
	HasCompleted(userID, itemID uint) (bool, error)
	GetByTransactionID(transactionID string) (*models.UserPurchase, error)
	ListByUser(userID uint, limit int) ([]models.UserPurchase, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	ShopItem ShopItemRepository
	Purchase PurchaseRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		ShopItem: NewShopItemRepository(db),
		Purchase: NewPurchaseRepository(db),
	}
}
