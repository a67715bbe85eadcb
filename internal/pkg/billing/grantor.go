package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
)

// CoinCreditor credits coins at most once per reference.
type CoinCreditor interface {
	AddCoinsOnce(ctx context.Context, userID uint, amount int64, source, refID, description string) (int64, bool, error)
}

// PaidPurchaseRegistrar records shop items bought through the gateway.
type PaidPurchaseRegistrar interface {
	RegisterPaidPurchase(ctx context.Context, userID, itemID uint, orderNo string) (*models.UserPurchase, error)
}

// EntitlementGranter applies the effect of a paid order.
type EntitlementGranter interface {
	Grant(ctx context.Context, order *models.Order) error
}

// Grantor dispatches a paid order to the component owning its product.
// Every branch is idempotent per order number.
type Grantor struct {
	coins   CoinCreditor
	subs    *SubscriptionManager
	shop    PaidPurchaseRegistrar
	catalog *Catalog
	audit   audit.Trail
}

func NewGrantor(coins CoinCreditor, subs *SubscriptionManager, shop PaidPurchaseRegistrar, catalog *Catalog, trail audit.Trail) *Grantor {
	return &Grantor{coins: coins, subs: subs, shop: shop, catalog: catalog, audit: trail}
}

func (g *Grantor) Grant(ctx context.Context, order *models.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grant for order %s panicked: %v", order.OrderNo, r)
		}
	}()

	switch order.ProductType {
	case models.ProductTypeCoins:
		coins, ok := g.catalog.CoinsFor(order.ProductID)
		if !ok {
			return apperr.Validation("unknown coin pack %q", order.ProductID)
		}
		balance, applied, err := g.coins.AddCoinsOnce(ctx, order.UserID, coins, ledger.SourcePurchase, order.OrderNo, "coin pack "+order.ProductID)
		if err != nil {
			return err
		}
		if applied {
			log.Infof("[Grant] order %s credited %d coins to user %d (balance %d)", order.OrderNo, coins, order.UserID, balance)
		}
		return nil

	case models.ProductTypeSubscription:
		tierID, period, err := ParseSubscriptionProduct(order.ProductID)
		if err != nil {
			return err
		}
		_, _, err = g.subs.Activate(ctx, order.UserID, tierID, period, order.OrderNo)
		return err

	case models.ProductTypeShopItem:
		itemID, err := strconv.ParseUint(order.ProductID, 10, 64)
		if err != nil {
			return apperr.Validation("invalid shop item %q", order.ProductID)
		}
		_, err = g.shop.RegisterPaidPurchase(ctx, order.UserID, uint(itemID), order.OrderNo)
		return err

	default:
		log.Warnf("[Grant] order %s has unknown product type %q, nothing granted", order.OrderNo, order.ProductType)
		g.audit.Log(ctx, audit.Entry{
			Event:    audit.EventGrantUnknownProduct,
			Severity: audit.SeverityWarning,
			UserID:   order.UserID,
			OrderNo:  order.OrderNo,
			Message:  "paid order with unknown product type needs manual follow-up",
			Details:  map[string]interface{}{"product_type": order.ProductType, "product_id": order.ProductID},
		})
		return nil
	}
}
