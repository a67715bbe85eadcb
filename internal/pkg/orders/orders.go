// Package orders stores payment orders and moves them through the
// pending -> paid / pending -> failed state machine with conditional updates.
package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
)

// DefaultTTL is how long a pending order accepts a payment callback.
const DefaultTTL = 300 * time.Second

var ErrOrderNotFound = apperr.NotFound("order not found")

// Store persists orders.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the store reading time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the order expiry.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// CreateOrder inserts a new pending order with a fresh order number.
func (s *Store) CreateOrder(ctx context.Context, userID uint, amount int64, productType, productID string, meta map[string]interface{}) (*models.Order, error) {
	if userID == 0 {
		return nil, apperr.Validation("user is required")
	}
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	switch productType {
	case models.ProductTypeCoins, models.ProductTypeSubscription, models.ProductTypeShopItem:
	default:
		return nil, apperr.Validation("unknown product type %q", productType)
	}
	if strings.TrimSpace(productID) == "" {
		return nil, apperr.Validation("product id is required")
	}

	var metaJSON string
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, apperr.Validation("invalid order metadata")
		}
		metaJSON = string(b)
	}

	orderNo, err := s.newOrderNo()
	if err != nil {
		return nil, apperr.Internal(err, "generate order number")
	}
	order := &models.Order{
		OrderNo:     orderNo,
		UserID:      userID,
		Amount:      amount,
		ProductType: productType,
		ProductID:   productID,
		Status:      models.OrderStatusPending,
		MetaJSON:    metaJSON,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, apperr.Internal(err, "create order")
	}
	return order, nil
}

// GetOrder loads an order by its number.
func (s *Store) GetOrder(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err, "load order")
	}
	return &order, nil
}

// ListByUser returns the most recent orders of a user.
func (s *Store) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []models.Order
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, apperr.Internal(err, "list orders")
	}
	return list, nil
}

// TransitionOrder moves an order from one status to another only if it is
// still in from. It returns false without error when another writer got there
// first.
func (s *Store) TransitionOrder(ctx context.Context, orderNo, from, to, tradeNo string, paidAt *time.Time) (bool, error) {
	if !legalTransition(from, to) {
		return false, apperr.Validation("illegal order transition %s -> %s", from, to)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": s.now().UTC(),
	}
	if tradeNo != "" {
		updates["trade_no"] = tradeNo
	}
	if to == models.OrderStatusPaid {
		at := s.now().UTC()
		if paidAt != nil {
			at = paidAt.UTC()
		}
		updates["paid_at"] = at
	}

	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_no = ? AND status = ?", orderNo, from).
		Updates(updates)
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "transition order")
	}
	return res.RowsAffected == 1, nil
}

// IsExpired reports whether a pending order is past its payment window.
func (s *Store) IsExpired(order *models.Order) bool {
	return s.now().Sub(order.CreatedAt) > s.ttl
}

func legalTransition(from, to string) bool {
	return from == models.OrderStatusPending &&
		(to == models.OrderStatusPaid || to == models.OrderStatusFailed)
}

func (s *Store) newOrderNo() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("PV%s%s", s.now().UTC().Format("20060102150405"), strings.ToUpper(hex.EncodeToString(b))), nil
}
