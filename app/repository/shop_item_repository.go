package repository

import (
	"errors"

	"github.com/ManuelReschke/PixelVault/app/models"
	"gorm.io/gorm"
)

type shopItemRepository struct {
	db *gorm.DB
}

// NewShopItemRepository creates a new shop item repository instance
func NewShopItemRepository(db *gorm.DB) ShopItemRepository {
	return &shopItemRepository{db: db}
}

// Create inserts the item. Stock 0 and inactive are written explicitly,
// gorm would otherwise replace those zero values with column defaults.
func (r *shopItemRepository) Create(item *models.ShopItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return tx.Model(item).Updates(map[string]interface{}{
			"stock":     item.Stock,
			"is_active": item.IsActive,
		}).Error
	})
}

func (r *shopItemRepository) GetByID(id uint) (*models.ShopItem, error) {
	var item models.ShopItem
	if err := r.db.First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListActive returns purchasable items in display order
func (r *shopItemRepository) ListActive() ([]models.ShopItem, error) {
	var items []models.ShopItem
	err := r.db.Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&items).Error
	return items, err
}

// Update saves descriptive fields only. Stock and sold_count are owned by
// the purchase flow and never written from here.
func (r *shopItemRepository) Update(item *models.ShopItem) error {
	if item.ID == 0 {
		return errors.New("shop item id is required")
	}
	return r.db.Model(&models.ShopItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"name":          item.Name,
		"description":   item.Description,
		"category":      item.Category,
		"price_coins":   item.PriceCoins,
		"price_minor":   item.PriceMinor,
		"tier_required": item.TierRequired,
		"is_active":     item.IsActive,
		"sort_order":    item.SortOrder,
	}).Error
}
