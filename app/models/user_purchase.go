package models

import (
	"fmt"
	"time"
)

const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusVoided    = "voided"
)

// UserPurchase records a shop purchase. UniqueKey is only set for completed
// purchases of unique items, so the unique index allows one completed row per
// (user, item) while voided attempts stay unconstrained.
type UserPurchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	ItemID        uint      `gorm:"not null;index" json:"item_id"`
	TransactionID string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	PriceCoins    int64     `gorm:"not null;default:0" json:"price_coins"`
	Status        string    `gorm:"type:varchar(16);not null;default:'completed'" json:"status"`
	UniqueKey     *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	PurchasedAt   time.Time `gorm:"not null" json:"purchased_at"`
}

// PurchaseUniqueKey builds the ownership key for unique items.
func PurchaseUniqueKey(userID, itemID uint) string {
	return fmt.Sprintf("%d:%d", userID, itemID)
}
