package billing

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/PixelVault/internal/pkg/orders"
	"github.com/ManuelReschke/PixelVault/internal/pkg/shop"
)

func payQuery(t *testing.T, payURL string) url.Values {
	t.Helper()
	u, err := url.Parse(payURL)
	require.NoError(t, err)
	return u.Query()
}

func TestCreateOrderPricesOnServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, f.db, "uma", 0)

	tests := []struct {
		productType string
		productID   string
		want        int64
	}{
		{models.ProductTypeCoins, "100", 199},
		{models.ProductTypeCoins, " 1200 ", 1999},
		{models.ProductTypeSubscription, "premium:month", 1500},
		{models.ProductTypeSubscription, "premium_max:year", 28999},
	}
	for _, tt := range tests {
		order, payURL, err := f.service.CreateOrder(ctx, user.ID, tt.productType, tt.productID)
		require.NoError(t, err, tt.productID)
		assert.Equal(t, tt.want, order.Amount, tt.productID)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.True(t, strings.HasPrefix(order.OrderNo, "PV"))
		assert.True(t, strings.HasPrefix(payURL, "/pay/complete?"))
	}

	bad := []struct{ productType, productID string }{
		{models.ProductTypeCoins, "777"},
		{models.ProductTypeSubscription, "free:month"},
		{models.ProductTypeSubscription, "premium"},
		{models.ProductTypeShopItem, "0"},
		{"gift", "1"},
	}
	for _, b := range bad {
		_, _, err := f.service.CreateOrder(ctx, user.ID, b.productType, b.productID)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%s/%s", b.productType, b.productID)
	}
}

func TestCreateOrderRejectsUngrantableShopItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, f.db, "xena", 0)

	soldOut := dbtest.CreateItem(t, f.db, &models.ShopItem{Name: "gone", Category: models.ShopCategoryBoost, PriceMinor: 499, Stock: 0, IsActive: true})
	premium := dbtest.CreateItem(t, f.db, &models.ShopItem{Name: "vip", Category: models.ShopCategoryTheme, PriceMinor: 499, Stock: -1, TierRequired: models.PlanPremium, IsActive: true})
	owned := dbtest.CreateItem(t, f.db, &models.ShopItem{Name: "mine", Category: models.ShopCategoryAvatarFrame, PriceMinor: 499, Stock: -1, IsActive: true})
	require.NoError(t, f.db.Create(&models.UserPurchase{
		UserID:        user.ID,
		ItemID:        owned.ID,
		TransactionID: "PV-EARLIER",
		Status:        models.PurchaseStatusCompleted,
	}).Error)

	tests := []struct {
		name string
		item *models.ShopItem
		want error
	}{
		{"sold out", soldOut, shop.ErrSoldOut},
		{"tier too low", premium, shop.ErrTierRequired},
		{"already owned", owned, shop.ErrAlreadyOwned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, payURL, err := f.service.CreateOrder(ctx, user.ID, models.ProductTypeShopItem, strconv.FormatUint(uint64(tt.item.ID), 10))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, order)
			assert.Empty(t, payURL)
		})
	}

	var stored int64
	require.NoError(t, f.db.Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&stored).Error)
	assert.Zero(t, stored, "no order is created for an item that cannot be granted")
}

func TestGetOrderChecksOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.CreateUser(t, f.db, "vera", 0)
	other := dbtest.CreateUser(t, f.db, "walt", 0)
	order := f.createOrder(t, owner.ID, models.ProductTypeCoins, "100")

	got, err := f.service.GetOrder(ctx, owner.ID, order.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.service.GetOrder(ctx, other.ID, order.OrderNo)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	list, err := f.service.ListOrders(ctx, other.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMockPaymentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, f.db, "xena", 0)

	order, payURL, err := f.service.CreateOrder(ctx, user.ID, models.ProductTypeCoins, "500")
	require.NoError(t, err)
	q := payQuery(t, payURL)

	params, loaded, err := f.service.OpenPayPage(ctx, q, "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNo, params.OrderNo)
	assert.Equal(t, order.Amount, loaded.Amount)

	_, err = f.service.CompleteMockPayment(ctx, q, "maybe", "198.51.100.1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	res, err := f.service.CompleteMockPayment(ctx, q, CallbackStatusSuccess, "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, res.Order.Status)
	assert.True(t, strings.HasPrefix(res.Order.TradeNoValue(), "MOCK"))
	assert.Equal(t, int64(500), f.balance(t, user.ID))

	// a second click pays nothing twice
	_, err = f.service.CompleteMockPayment(ctx, q, CallbackStatusSuccess, "198.51.100.1")
	assert.ErrorIs(t, err, ErrOrderNotPending)
	assert.Equal(t, int64(500), f.balance(t, user.ID))
}

func TestMockPaymentFailureOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, f.db, "yuri", 0)

	order, payURL, err := f.service.CreateOrder(ctx, user.ID, models.ProductTypeCoins, "100")
	require.NoError(t, err)

	res, err := f.service.CompleteMockPayment(ctx, payQuery(t, payURL), CallbackStatusFailed, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, res.Order.Status)
	assert.Equal(t, models.OrderStatusFailed, f.reload(t, order.OrderNo).Status)
	assert.Zero(t, f.balance(t, user.ID))
}

func TestOpenPayPageRejectsTampering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, f.db, "zoe", 0)

	order, payURL, err := f.service.CreateOrder(ctx, user.ID, models.ProductTypeCoins, "3000")
	require.NoError(t, err)

	q := payQuery(t, payURL)
	q.Set("amount", "1")
	_, _, err = f.service.OpenPayPage(ctx, q, "192.0.2.9")
	assert.Same(t, apperr.InvalidSignature, err)

	_, err = f.service.CompleteMockPayment(ctx, q, CallbackStatusSuccess, "192.0.2.9")
	assert.Same(t, apperr.InvalidSignature, err)

	events := f.trail.Events(audit.EventPayURLInvalid)
	require.Len(t, events, 2)
	assert.Equal(t, order.OrderNo, events[0].OrderNo)
	assert.Equal(t, "192.0.2.9", events[0].IP)

	assert.Equal(t, models.OrderStatusPending, f.reload(t, order.OrderNo).Status)
	assert.Zero(t, f.balance(t, user.ID))
}
