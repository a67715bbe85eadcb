package ledger

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/PixelVault/app/models"
)

// Report is the result of checking one user's ledger against the balance.
type Report struct {
	UserID     uint  `json:"user_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Entries    int   `json:"entries"`
	Consistent bool  `json:"consistent"`
	// BrokenAt is the first entry whose running total does not chain, or 0.
	BrokenAt uint `json:"broken_at,omitempty"`
}

// VerifyConsistency checks that the balance equals the sum of all deltas and
// that every entry continues the running total of the previous one.
func (s *Store) VerifyConsistency(ctx context.Context, userID uint) (*Report, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	var entries []models.LedgerEntry
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	r := &Report{UserID: userID, Balance: balance, Entries: len(entries)}
	var running int64
	for _, e := range entries {
		if r.BrokenAt == 0 && (e.BalanceBefore != running || e.BalanceAfter != e.BalanceBefore+e.Amount) {
			r.BrokenAt = e.ID
		}
		r.LedgerSum += e.Amount
		running = e.BalanceAfter
	}
	r.Consistent = r.BrokenAt == 0 && r.LedgerSum == balance
	return r, nil
}
