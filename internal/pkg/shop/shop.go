// Package shop implements coin purchases of shop items: a cheap pre-check,
// a guarded mutation of balance, stock and purchase rows, and synchronous
// compensation when the stock guard loses a race after the debit landed.
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/entitlements"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/locker"
)

var (
	ErrItemNotFound  = apperr.NotFound("item not found")
	ErrSoldOut       = apperr.Conflict("item is sold out")
	ErrAlreadyOwned  = apperr.Conflict("item already owned")
	ErrTierRequired  = apperr.Conflict("a higher membership tier is required")
	ErrNotCoinPriced = apperr.Validation("item cannot be bought with coins")
)

// Result describes the outcome of a purchase. On a stock race it is returned
// together with ErrSoldOut and carries the refunded balance.
type Result struct {
	Item     *models.ShopItem     `json:"item"`
	Purchase *models.UserPurchase `json:"purchase"`
	Balance  int64                `json:"balance"`
	Refunded bool                 `json:"refunded"`
}

type Orchestrator struct {
	db        *gorm.DB
	items     repository.ShopItemRepository
	purchases repository.PurchaseRepository
	users     repository.UserRepository
	locker    locker.Locker
	audit     audit.Trail

	// beforeStockUpdate runs inside the transaction between debit and stock
	// update. Tests use it to reproduce a lost stock race.
	beforeStockUpdate func(tx *gorm.DB, itemID uint)
}

func NewOrchestrator(db *gorm.DB, repos *repository.Repositories, l locker.Locker, trail audit.Trail) *Orchestrator {
	if l == nil {
		l = locker.NewLocal()
	}
	return &Orchestrator{
		db:        db,
		items:     repos.ShopItem,
		purchases: repos.Purchase,
		users:     repos.User,
		locker:    l,
		audit:     trail,
	}
}

// ListItems returns the active catalog.
func (o *Orchestrator) ListItems(ctx context.Context) ([]models.ShopItem, error) {
	items, err := o.items.ListActive()
	if err != nil {
		return nil, apperr.Internal(err, "list shop items")
	}
	return items, nil
}

// ListPurchases returns the newest purchases of a user, voided ones included.
func (o *Orchestrator) ListPurchases(ctx context.Context, userID uint, limit int) ([]models.UserPurchase, error) {
	list, err := o.purchases.ListByUser(userID, limit)
	if err != nil {
		return nil, apperr.Internal(err, "list purchases")
	}
	return list, nil
}

// SaveItem creates an item or updates its descriptive fields. Stock of an
// existing item is only changed by purchases.
func (o *Orchestrator) SaveItem(ctx context.Context, item *models.ShopItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return apperr.Validation("item name is required")
	}
	if item.PriceCoins < 0 || item.PriceMinor < 0 {
		return apperr.Validation("prices must not be negative")
	}
	if item.PriceCoins == 0 && item.PriceMinor == 0 {
		return apperr.Validation("item needs a coin or money price")
	}
	if strings.TrimSpace(item.Category) == "" {
		return apperr.Validation("item category is required")
	}
	if item.TierRequired == "" {
		item.TierRequired = models.PlanFree
	}
	if item.TierRequired != models.PlanFree && !entitlements.IsTier(item.TierRequired) {
		return apperr.Validation("unknown tier %q", item.TierRequired)
	}

	if item.ID == 0 {
		if item.Stock < -1 {
			return apperr.Validation("stock must be -1 (unlimited) or more")
		}
		if err := o.items.Create(item); err != nil {
			return apperr.Internal(err, "create shop item")
		}
		log.Infof("[Shop] created item %d %q", item.ID, item.Name)
		return nil
	}

	if _, err := o.loadItem(item.ID); err != nil {
		return err
	}
	if err := o.items.Update(item); err != nil {
		return apperr.Internal(err, "update shop item")
	}
	fresh, err := o.loadItem(item.ID)
	if err != nil {
		return err
	}
	*item = *fresh
	return nil
}

// ItemPriceMinor returns the money price of an item userID may buy through
// the payment gateway. Stock, ownership and tier are checked up front so a
// paid order can always be granted.
func (o *Orchestrator) ItemPriceMinor(ctx context.Context, userID, itemID uint) (int64, error) {
	item, err := o.loadItem(itemID)
	if err != nil {
		return 0, err
	}
	if !item.IsActive {
		return 0, ErrItemNotFound
	}
	if item.PriceMinor <= 0 {
		return 0, apperr.Validation("item cannot be bought with money")
	}
	if _, err := o.loadUser(userID); err != nil {
		return 0, err
	}
	if err := o.checkEligible(userID, item); err != nil {
		return 0, err
	}
	return item.PriceMinor, nil
}

// Purchase buys one unit of itemID for userID with coins.
func (o *Orchestrator) Purchase(ctx context.Context, userID, itemID uint) (*Result, error) {
	item, err := o.precheck(userID, itemID)
	if err != nil {
		return nil, err
	}

	unlockUser, err := o.locker.Lock(ctx, locker.UserKey(userID))
	if err != nil {
		return nil, apperr.Internal(err, "acquire wallet lock")
	}
	defer unlockUser()
	if !item.IsUnlimited() {
		unlockItem, err := o.locker.Lock(ctx, locker.ItemKey(itemID))
		if err != nil {
			return nil, apperr.Internal(err, "acquire item lock")
		}
		defer unlockItem()
	}

	txID := "shop_" + uuid.NewString()
	res := &Result{}
	raced := false

	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ShopItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("reload item: %w", err)
		}
		if !current.IsActive {
			return ErrItemNotFound
		}
		if current.IsSoldOut() {
			return ErrSoldOut
		}
		if current.IsUnique() {
			owned, err := ownsTx(tx, userID, itemID)
			if err != nil {
				return err
			}
			if owned {
				return ErrAlreadyOwned
			}
		}

		debit, err := ledger.DebitTx(tx, ledger.Mutation{
			UserID:      userID,
			Amount:      current.PriceCoins,
			Source:      ledger.SourceShop,
			RefID:       txID,
			Description: "shop: " + current.Name,
		})
		if err != nil {
			return err
		}

		if o.beforeStockUpdate != nil {
			o.beforeStockUpdate(tx, itemID)
		}

		ok, err := takeStockTx(tx, &current)
		if err != nil {
			return err
		}
		if !ok {
			refund, err := ledger.CreditTx(tx, ledger.Mutation{
				UserID:      userID,
				Amount:      current.PriceCoins,
				Source:      ledger.SourceRefundStockRace,
				RefID:       txID,
				Description: "refund: " + current.Name + " sold out",
			})
			if err != nil {
				return err
			}
			voided := &models.UserPurchase{
				UserID:        userID,
				ItemID:        itemID,
				TransactionID: txID,
				PriceCoins:    current.PriceCoins,
				Status:        models.PurchaseStatusVoided,
				PurchasedAt:   debit.CreatedAt,
			}
			if err := tx.Create(voided).Error; err != nil {
				return fmt.Errorf("record voided purchase: %w", err)
			}
			raced = true
			res.Purchase = voided
			res.Balance = refund.BalanceAfter
			res.Refunded = true
			return nil
		}

		purchase := &models.UserPurchase{
			UserID:        userID,
			ItemID:        itemID,
			TransactionID: txID,
			PriceCoins:    current.PriceCoins,
			Status:        models.PurchaseStatusCompleted,
			UniqueKey:     uniqueKey(&current, userID),
			PurchasedAt:   debit.CreatedAt,
		}
		if err := tx.Create(purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyOwned
			}
			return fmt.Errorf("record purchase: %w", err)
		}
		res.Purchase = purchase
		res.Balance = debit.BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	if fresh, err := o.loadItem(itemID); err == nil {
		res.Item = fresh
	} else {
		res.Item = item
	}

	if raced {
		log.Warnf("[Shop] stock race on item %d for user %d, refunded %d coins (tx=%s)", itemID, userID, item.PriceCoins, txID)
		o.audit.Log(ctx, audit.Entry{
			Event:    audit.EventStockRaceRefund,
			Severity: audit.SeverityHigh,
			UserID:   userID,
			Message:  "stock guard failed after debit, coins refunded",
			Details:  map[string]interface{}{"item_id": itemID, "transaction_id": txID, "refund": item.PriceCoins},
		})
		return res, ErrSoldOut
	}

	o.audit.Log(ctx, audit.Entry{
		Event:    audit.EventPurchaseCompleted,
		Severity: audit.SeverityInfo,
		UserID:   userID,
		Message:  "shop purchase completed",
		Details:  map[string]interface{}{"item_id": itemID, "transaction_id": txID, "price": item.PriceCoins},
	})
	return res, nil
}

// RegisterPaidPurchase records an item bought through the payment gateway.
// The order number is the transaction id, so repeated grants return the
// existing purchase.
func (o *Orchestrator) RegisterPaidPurchase(ctx context.Context, userID, itemID uint, orderNo string) (*models.UserPurchase, error) {
	if existing, err := o.purchases.GetByTransactionID(orderNo); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "load purchase")
	}

	item, err := o.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsUnlimited() {
		unlock, err := o.locker.Lock(ctx, locker.ItemKey(itemID))
		if err != nil {
			return nil, apperr.Internal(err, "acquire item lock")
		}
		defer unlock()
	}

	var purchase *models.UserPurchase
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ShopItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("reload item: %w", err)
		}
		if current.IsUnique() {
			owned, err := ownsTx(tx, userID, itemID)
			if err != nil {
				return err
			}
			if owned {
				return ErrAlreadyOwned
			}
		}
		ok, err := takeStockTx(tx, &current)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSoldOut
		}
		purchase = &models.UserPurchase{
			UserID:        userID,
			ItemID:        itemID,
			TransactionID: orderNo,
			Status:        models.PurchaseStatusCompleted,
			UniqueKey:     uniqueKey(&current, userID),
			PurchasedAt:   time.Now(),
		}
		if err := tx.Create(purchase).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyOwned
			}
			return fmt.Errorf("record purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		// a concurrent grant for the same order may have won
		if existing, lookupErr := o.purchases.GetByTransactionID(orderNo); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return purchase, nil
}

func (o *Orchestrator) precheck(userID, itemID uint) (*models.ShopItem, error) {
	item, err := o.loadItem(itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrItemNotFound
	}
	if item.PriceCoins <= 0 {
		return nil, ErrNotCoinPriced
	}
	// the user must exist before GetPlan, which creates settings rows
	user, err := o.loadUser(userID)
	if err != nil {
		return nil, err
	}
	if err := o.checkEligible(userID, item); err != nil {
		return nil, err
	}
	if user.Coins < item.PriceCoins {
		return nil, ledger.ErrInsufficientCoins
	}
	return item, nil
}

// checkEligible rejects sold out items, unique items already owned and
// items above the user's tier.
func (o *Orchestrator) checkEligible(userID uint, item *models.ShopItem) error {
	if item.IsSoldOut() {
		return ErrSoldOut
	}
	if item.IsUnique() {
		owned, err := o.purchases.HasCompleted(userID, item.ID)
		if err != nil {
			return apperr.Internal(err, "check ownership")
		}
		if owned {
			return ErrAlreadyOwned
		}
	}
	plan, err := o.users.GetPlan(userID)
	if err != nil {
		return apperr.Internal(err, "load plan")
	}
	if !entitlements.Meets(plan, item.TierRequired) {
		return ErrTierRequired
	}
	return nil
}

func (o *Orchestrator) loadUser(userID uint) (*models.User, error) {
	user, err := o.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrUserNotFound
		}
		return nil, apperr.Internal(err, "load user")
	}
	return user, nil
}

func (o *Orchestrator) loadItem(itemID uint) (*models.ShopItem, error) {
	item, err := o.items.GetByID(itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err, "load item")
	}
	return item, nil
}

// takeStockTx decrements limited stock only while some is left and counts
// the sale. It reports false when the guard matched no row.
func takeStockTx(tx *gorm.DB, item *models.ShopItem) (bool, error) {
	q := tx.Model(&models.ShopItem{})
	if item.IsUnlimited() {
		q = q.Where("id = ? AND stock = ?", item.ID, models.StockUnlimited)
	} else {
		q = q.Where("id = ? AND stock > 0", item.ID)
	}
	updates := map[string]interface{}{"sold_count": gorm.Expr("sold_count + 1")}
	if !item.IsUnlimited() {
		updates["stock"] = gorm.Expr("stock - 1")
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func ownsTx(tx *gorm.DB, userID, itemID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.UserPurchase{}).
		Where("user_id = ? AND item_id = ? AND status = ?", userID, itemID, models.PurchaseStatusCompleted).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}
	return count > 0, nil
}

func uniqueKey(item *models.ShopItem, userID uint) *string {
	if !item.IsUnique() {
		return nil
	}
	key := models.PurchaseUniqueKey(userID, item.ID)
	return &key
}
