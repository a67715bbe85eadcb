package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/app/repository"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/PixelVault/internal/pkg/ledger"
	"github.com/ManuelReschke/PixelVault/internal/pkg/locker"
	"github.com/ManuelReschke/PixelVault/internal/pkg/orders"
	"github.com/ManuelReschke/PixelVault/internal/pkg/paysign"
	"github.com/ManuelReschke/PixelVault/internal/pkg/shop"
)

const testSecret = "billing-test-secret"

type fixture struct {
	db        *gorm.DB
	trail     *audit.MemoryTrail
	orders    *orders.Store
	signer    *paysign.Signer
	wallet    *ledger.Store
	shop      *shop.Orchestrator
	subs      *SubscriptionManager
	catalog   *Catalog
	grantor   *Grantor
	processor *CallbackProcessor
	service   *Service
	repo      Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	trail := audit.NewMemoryTrail()
	lk := locker.NewLocal()

	signer, err := paysign.NewSigner(testSecret, paysign.DefaultWindow)
	require.NoError(t, err)

	f := &fixture{db: db, trail: trail, signer: signer}
	f.repo = NewRepository(db)
	f.orders = orders.NewStore(db, orders.DefaultTTL)
	f.wallet = ledger.NewStore(db, lk)
	f.shop = shop.NewOrchestrator(db, repository.NewRepositories(db), lk, trail)
	f.subs = NewSubscriptionManager(f.repo, lk, trail)
	f.catalog = NewCatalog(f.shop)
	f.grantor = NewGrantor(f.wallet, f.subs, f.shop, f.catalog, trail)
	f.processor = NewCallbackProcessor(f.orders, signer, f.grantor, f.repo, trail)
	f.service = NewService(Config{
		Orders:    f.orders,
		Signer:    signer,
		Catalog:   f.catalog,
		Processor: f.processor,
		Subs:      f.subs,
		Audit:     trail,
		PayPath:   "/pay/complete",
	})
	return f
}

func (f *fixture) createOrder(t *testing.T, userID uint, productType, productID string) *models.Order {
	t.Helper()
	order, _, err := f.service.CreateOrder(context.Background(), userID, productType, productID)
	require.NoError(t, err)
	return order
}

func (f *fixture) callback(order *models.Order, tradeNo string, amount int64, status string) CallbackInput {
	return CallbackInputFromSigned(f.signer.SignCallback(order.OrderNo, tradeNo, amount, status), "203.0.113.7")
}

func (f *fixture) callbackAt(at time.Time, order *models.Order, tradeNo string, amount int64, status string) CallbackInput {
	s := f.signer.WithClock(func() time.Time { return at })
	return CallbackInputFromSigned(s.SignCallback(order.OrderNo, tradeNo, amount, status), "203.0.113.7")
}

func (f *fixture) reload(t *testing.T, orderNo string) *models.Order {
	t.Helper()
	order, err := f.orders.GetOrder(context.Background(), orderNo)
	require.NoError(t, err)
	return order
}

func (f *fixture) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	b, err := f.wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) assertConsistent(t *testing.T, userID uint) {
	t.Helper()
	report, err := f.wallet.VerifyConsistency(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, report.Consistent, "ledger drift: %+v", report)
}
