// Package ledger owns the coin balance on users and the append-only ledger
// explaining every change to it.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/locker"
)

// Sources tag where a balance change came from.
const (
	SourceShop            = "shop"
	SourcePurchase        = "purchase"
	SourceDailySignin     = "daily_signin"
	SourceRefundStockRace = "refund_stock_race"
	SourceAdjustment      = "adjustment"
)

var (
	ErrInsufficientCoins = apperr.Conflict("insufficient coins")
	ErrInvalidAmount     = apperr.Validation("amount must be positive")
	ErrUserNotFound      = apperr.NotFound("user not found")
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Mutation describes one balance change. Amount is always positive; the
// direction comes from CreditTx or DebitTx.
type Mutation struct {
	UserID      uint
	Amount      int64
	Source      string
	RefID       string
	Description string
}

// Store serializes balance changes per user and writes each change together
// with its ledger entry in one transaction.
type Store struct {
	db     *gorm.DB
	locker locker.Locker
}

func NewStore(db *gorm.DB, l locker.Locker) *Store {
	if l == nil {
		l = locker.NewLocal()
	}
	return &Store{db: db, locker: l}
}

// AddCoins credits amount and returns the new balance.
func (s *Store) AddCoins(ctx context.Context, userID uint, amount int64, source, refID, description string) (int64, error) {
	var entry *models.LedgerEntry
	err := s.withUser(ctx, userID, func(tx *gorm.DB) error {
		var err error
		entry, err = CreditTx(tx, Mutation{UserID: userID, Amount: amount, Source: source, RefID: refID, Description: description})
		return err
	})
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

// AddCoinsOnce credits amount unless an entry with the same source and refID
// already exists for the user. applied is false for a repeated call.
func (s *Store) AddCoinsOnce(ctx context.Context, userID uint, amount int64, source, refID, description string) (balance int64, applied bool, err error) {
	if refID == "" {
		return 0, false, apperr.Validation("reference id is required")
	}
	err = s.withUser(ctx, userID, func(tx *gorm.DB) error {
		existing, err := FindByRefTx(tx, userID, source, refID)
		if err != nil {
			return err
		}
		if existing != nil {
			balance, err = balanceTx(tx, userID)
			return err
		}
		entry, err := CreditTx(tx, Mutation{UserID: userID, Amount: amount, Source: source, RefID: refID, Description: description})
		if err != nil {
			return err
		}
		balance, applied = entry.BalanceAfter, true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return balance, applied, nil
}

// SpendCoins debits amount and returns the new balance. Nothing is written
// when the balance does not cover the amount.
func (s *Store) SpendCoins(ctx context.Context, userID uint, amount int64, source, refID, description string) (int64, error) {
	var entry *models.LedgerEntry
	err := s.withUser(ctx, userID, func(tx *gorm.DB) error {
		var err error
		entry, err = DebitTx(tx, Mutation{UserID: userID, Amount: amount, Source: source, RefID: refID, Description: description})
		return err
	})
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

// Balance returns the stored balance of a user.
func (s *Store) Balance(ctx context.Context, userID uint) (int64, error) {
	return balanceTx(s.db.WithContext(ctx), userID)
}

// History returns a page of ledger entries, newest first, and the total count.
func (s *Store) History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, int64, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	var entries []models.LedgerEntry
	if err := db.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *Store) withUser(ctx context.Context, userID uint, fn func(tx *gorm.DB) error) error {
	unlock, err := s.locker.Lock(ctx, locker.UserKey(userID))
	if err != nil {
		return apperr.Internal(err, "acquire wallet lock")
	}
	defer unlock()

	return s.db.WithContext(ctx).Transaction(fn)
}

// CreditTx adds m.Amount to the balance and appends the matching entry on tx.
func CreditTx(tx *gorm.DB, m Mutation) (*models.LedgerEntry, error) {
	if m.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	res := tx.Model(&models.User{}).
		Where("id = ?", m.UserID).
		UpdateColumn("coins", gorm.Expr("coins + ?", m.Amount))
	if res.Error != nil {
		return nil, fmt.Errorf("credit coins: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return appendEntry(tx, m, m.Amount, models.LedgerTypeEarn)
}

// DebitTx subtracts m.Amount only while the balance covers it. The entry is
// written only after the guarded update reports a changed row.
func DebitTx(tx *gorm.DB, m Mutation) (*models.LedgerEntry, error) {
	if m.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	res := tx.Model(&models.User{}).
		Where("id = ? AND coins >= ?", m.UserID, m.Amount).
		UpdateColumn("coins", gorm.Expr("coins - ?", m.Amount))
	if res.Error != nil {
		return nil, fmt.Errorf("debit coins: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := balanceTx(tx, m.UserID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientCoins
	}
	return appendEntry(tx, m, -m.Amount, models.LedgerTypeSpend)
}

// FindByRefTx returns the entry for (user, source, refID) or nil.
func FindByRefTx(tx *gorm.DB, userID uint, source, refID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := tx.Where("user_id = ? AND source = ? AND ref_id = ?", userID, source, refID).
		Order("id ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return &entry, nil
}

func appendEntry(tx *gorm.DB, m Mutation, delta int64, entryType string) (*models.LedgerEntry, error) {
	after, err := balanceTx(tx, m.UserID)
	if err != nil {
		return nil, err
	}
	entry := &models.LedgerEntry{
		UserID:        m.UserID,
		Amount:        delta,
		Type:          entryType,
		Source:        m.Source,
		RefID:         m.RefID,
		BalanceBefore: after - delta,
		BalanceAfter:  after,
		Description:   m.Description,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

func balanceTx(tx *gorm.DB, userID uint) (int64, error) {
	var user models.User
	err := tx.Select("id", "coins").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return user.Coins, nil
}
