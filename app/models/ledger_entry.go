package models

import "time"

const (
	LedgerTypeEarn  = "earn"
	LedgerTypeSpend = "spend"
)

// LedgerEntry is one append-only change of a user's coin balance. Amount is
// the signed delta; BalanceAfter = BalanceBefore + Amount.
type LedgerEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_coin_ledger_user_created,priority:1" json:"user_id"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Type          string    `gorm:"type:varchar(8);not null" json:"type"`
	Source        string    `gorm:"type:varchar(50);not null;index:idx_coin_ledger_source_ref,priority:1" json:"source"`
	RefID         string    `gorm:"type:varchar(100);not null;default:'';index:idx_coin_ledger_source_ref,priority:2" json:"ref_id"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Description   string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_coin_ledger_user_created,priority:2" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "coin_ledger_entries"
}
