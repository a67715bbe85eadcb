package billing

import (
	"context"
	"sort"
	"strconv"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
)

// coinPacks maps the coin amount of a pack to its price in minor units.
var coinPacks = map[int64]int64{
	100:  199,
	500:  999,
	1200: 1999,
	3000: 4499,
}

// tierPrices maps tier and period to a price in minor units.
var tierPrices = map[string]map[string]int64{
	models.PlanPremium: {
		models.PeriodMonth:   1500,
		models.PeriodQuarter: 3999,
		models.PeriodYear:    14999,
	},
	models.PlanPremiumMax: {
		models.PeriodMonth:   2900,
		models.PeriodQuarter: 7999,
		models.PeriodYear:    28999,
	},
}

// ItemPricer resolves the money price of shop items and rejects items the
// user could not be granted.
type ItemPricer interface {
	ItemPriceMinor(ctx context.Context, userID, itemID uint) (int64, error)
}

// Catalog prices orders on the server. Client supplied amounts are never used.
type Catalog struct {
	items ItemPricer
}

func NewCatalog(items ItemPricer) *Catalog {
	return &Catalog{items: items}
}

// CoinPack is one purchasable coin bundle.
type CoinPack struct {
	ProductID  string `json:"product_id"`
	Coins      int64  `json:"coins"`
	PriceMinor int64  `json:"price_minor"`
}

// CoinPacks lists the bundles ordered by size.
func (c *Catalog) CoinPacks() []CoinPack {
	packs := make([]CoinPack, 0, len(coinPacks))
	for coins, price := range coinPacks {
		packs = append(packs, CoinPack{ProductID: strconv.FormatInt(coins, 10), Coins: coins, PriceMinor: price})
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].Coins < packs[j].Coins })
	return packs
}

// CoinsFor returns the coins granted by a coin pack product id.
func (c *Catalog) CoinsFor(productID string) (int64, bool) {
	coins, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return 0, false
	}
	_, ok := coinPacks[coins]
	return coins, ok
}

// Quote returns the amount in minor units userID pays for a product.
func (c *Catalog) Quote(ctx context.Context, userID uint, productType, productID string) (int64, error) {
	switch productType {
	case models.ProductTypeCoins:
		coins, ok := c.CoinsFor(productID)
		if !ok {
			return 0, apperr.Validation("unknown coin pack %q", productID)
		}
		return coinPacks[coins], nil
	case models.ProductTypeSubscription:
		tierID, period, err := ParseSubscriptionProduct(productID)
		if err != nil {
			return 0, err
		}
		return tierPrices[tierID][period], nil
	case models.ProductTypeShopItem:
		if c.items == nil {
			return 0, apperr.Validation("shop items cannot be bought with money")
		}
		itemID, err := strconv.ParseUint(productID, 10, 64)
		if err != nil || itemID == 0 {
			return 0, apperr.Validation("invalid shop item %q", productID)
		}
		return c.items.ItemPriceMinor(ctx, userID, uint(itemID))
	default:
		return 0, apperr.Validation("unknown product type %q", productType)
	}
}
