package models

import "time"

const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

const (
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// Subscription is the single tier subscription of a user. Cancel and resume
// only toggle AutoRenew; ExpiresAt is moved by paid renewals alone.
type Subscription struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TierID       string    `gorm:"type:varchar(50);not null" json:"tier_id"`
	Period       string    `gorm:"type:varchar(16);not null" json:"period"`
	Status       string    `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	AutoRenew    bool      `gorm:"not null;default:true" json:"auto_renew"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	CancelReason string    `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	LastOrderNo  string    `gorm:"type:varchar(64)" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActiveAt reports whether the entitlement period covers t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt.After(t)
}
