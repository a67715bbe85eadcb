package repository

import (
	"github.com/ManuelReschke/PixelVault/app/models"
	"gorm.io/gorm"
)

type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// HasCompleted reports whether the user already owns the item
func (r *purchaseRepository) HasCompleted(userID, itemID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserPurchase{}).
		Where("user_id = ? AND item_id = ? AND status = ?", userID, itemID, models.PurchaseStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *purchaseRepository) GetByTransactionID(transactionID string) (*models.UserPurchase, error) {
	var p models.UserPurchase
	if err := r.db.Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) ListByUser(userID uint, limit int) ([]models.UserPurchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []models.UserPurchase
	err := r.db.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
