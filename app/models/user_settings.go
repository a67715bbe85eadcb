package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	PlanFree       = "free"
	PlanPremium    = "premium"
	PlanPremiumMax = "premium_max"
)

// UserSettings stores per-user preferences and the effective plan derived
// from the subscription.
type UserSettings struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"uniqueIndex" json:"user_id"`
	Plan           string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	ShowLedgerHint bool           `gorm:"default:true" json:"show_ledger_hint"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetOrCreateUserSettings returns existing settings or creates defaults
func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	var us UserSettings
	if err := db.Where("user_id = ?", userID).First(&us).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			us = UserSettings{UserID: userID, Plan: PlanFree, ShowLedgerHint: true}
			if err := db.Create(&us).Error; err != nil {
				return nil, err
			}
			return &us, nil
		}
		return nil, err
	}
	return &us, nil
}

// EffectivePlan falls back to free for unset or unknown values.
func (us *UserSettings) EffectivePlan() string {
	if us == nil {
		return PlanFree
	}
	switch us.Plan {
	case PlanPremium, PlanPremiumMax:
		return us.Plan
	default:
		return PlanFree
	}
}
