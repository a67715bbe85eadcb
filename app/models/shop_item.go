package models

import "time"

const (
	ShopCategoryAvatarFrame = "avatar_frame"
	ShopCategoryBadge       = "badge"
	ShopCategoryTheme       = "theme"
	ShopCategoryBoost       = "boost"
)

// StockUnlimited marks items that never run out.
const StockUnlimited int64 = -1

// ShopItem is an item sold for coins or, when PriceMinor is set, for money.
type ShopItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(150);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"type:varchar(32);not null;index" json:"category"`
	PriceCoins   int64     `gorm:"not null;default:0" json:"price_coins"`
	PriceMinor   int64     `gorm:"not null;default:0" json:"price_minor"`
	Stock        int64     `gorm:"not null;default:-1" json:"stock"`
	SoldCount    int64     `gorm:"not null;default:0" json:"sold_count"`
	TierRequired string    `gorm:"type:varchar(50);not null;default:'free'" json:"tier_required"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"is_active"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsUnique reports whether a user may own the item at most once.
func (i *ShopItem) IsUnique() bool {
	switch i.Category {
	case ShopCategoryAvatarFrame, ShopCategoryBadge, ShopCategoryTheme:
		return true
	}
	return false
}

func (i *ShopItem) IsUnlimited() bool {
	return i.Stock == StockUnlimited
}

func (i *ShopItem) IsSoldOut() bool {
	return i.Stock == 0
}
