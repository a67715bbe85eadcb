package models

import "time"

// AuditLog is an append-only security/event record.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Event       string    `gorm:"type:varchar(64);not null;index" json:"event"`
	Severity    string    `gorm:"type:varchar(16);not null;index" json:"severity"`
	UserID      *uint     `gorm:"index" json:"user_id,omitempty"`
	OrderNo     string    `gorm:"type:varchar(64);index" json:"order_no,omitempty"`
	IPAddress   string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	Message     string    `gorm:"type:varchar(255)" json:"message"`
	DetailsJSON string    `gorm:"type:text" json:"details_json,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
