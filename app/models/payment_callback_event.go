package models

import "time"

// PaymentCallbackEvent stores every raw gateway callback with deduplication
// metadata. Repeated deliveries of the same payload share one row.
type PaymentCallbackEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderNo         string     `gorm:"type:varchar(64);not null;index:ux_payment_callback_events_order_payload,unique,priority:1" json:"order_no"`
	PayloadHash     string     `gorm:"type:char(64);not null;index:ux_payment_callback_events_order_payload,unique,priority:2" json:"payload_hash"`
	TradeNo         string     `gorm:"type:varchar(128);not null;default:''" json:"trade_no"`
	Status          string     `gorm:"type:varchar(16);not null" json:"status"`
	PayloadJSON     string     `gorm:"type:text;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	Deliveries      int        `gorm:"not null;default:1" json:"deliveries"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
