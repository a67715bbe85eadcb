package models

import "time"

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

const (
	ProductTypeSubscription = "subscription"
	ProductTypeCoins        = "coins"
	ProductTypeShopItem     = "shop_item"
)

// Order is a payment order. Status moves pending -> paid or pending -> failed
// exactly once, always through a conditional update.
type Order struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	OrderNo     string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_no"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	ProductType string     `gorm:"type:varchar(32);not null" json:"product_type"`
	ProductID   string     `gorm:"type:varchar(100);not null" json:"product_id"`
	Status      string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	TradeNo     *string    `gorm:"type:varchar(128);default:null" json:"trade_no,omitempty"`
	MetaJSON    string     `gorm:"type:text" json:"-"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	PaidAt      *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
}

// IsPending reports whether the order can still be settled.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// TradeNoValue returns the gateway reference or an empty string.
func (o *Order) TradeNoValue() string {
	if o.TradeNo == nil {
		return ""
	}
	return *o.TradeNo
}
