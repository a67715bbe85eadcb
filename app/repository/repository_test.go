package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
)

func TestShopItemRepositoryListActive(t *testing.T) {
	db := dbtest.Open(t)
	repos := NewRepositories(db)

	dbtest.CreateItem(t, db, &models.ShopItem{Name: "b", Category: models.ShopCategoryBadge, PriceCoins: 10, Stock: -1, IsActive: true, SortOrder: 2})
	dbtest.CreateItem(t, db, &models.ShopItem{Name: "a", Category: models.ShopCategoryTheme, PriceCoins: 10, Stock: 5, IsActive: true, SortOrder: 1})
	dbtest.CreateItem(t, db, &models.ShopItem{Name: "hidden", Category: models.ShopCategoryBadge, PriceCoins: 10, Stock: -1, IsActive: false})

	items, err := repos.ShopItem.ListActive()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "b", items[1].Name)
}

func TestShopItemRepositoryUpdateKeepsStock(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewShopItemRepository(db)
	item := dbtest.CreateItem(t, db, &models.ShopItem{Name: "frame", Category: models.ShopCategoryAvatarFrame, PriceCoins: 10, Stock: 3, IsActive: true})

	item.Name = "golden frame"
	item.Stock = 999
	require.NoError(t, repo.Update(item))

	loaded, err := repo.GetByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "golden frame", loaded.Name)
	assert.Equal(t, int64(3), loaded.Stock)
}

func TestPurchaseRepositoryHasCompleted(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewPurchaseRepository(db)

	require.NoError(t, db.Create(&models.UserPurchase{UserID: 1, ItemID: 2, TransactionID: "a", Status: models.PurchaseStatusVoided}).Error)
	owned, err := repo.HasCompleted(1, 2)
	require.NoError(t, err)
	assert.False(t, owned)

	require.NoError(t, db.Create(&models.UserPurchase{UserID: 1, ItemID: 2, TransactionID: "b", Status: models.PurchaseStatusCompleted}).Error)
	owned, err = repo.HasCompleted(1, 2)
	require.NoError(t, err)
	assert.True(t, owned)

	p, err := repo.GetByTransactionID("b")
	require.NoError(t, err)
	assert.Equal(t, uint(2), p.ItemID)
}

func TestUserRepositoryGetPlanDefaultsToFree(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepository(db)
	user := dbtest.CreateUser(t, db, "henry", 0)

	plan, err := repo.GetPlan(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, plan)
}

func TestFactoryReturnsSingletons(t *testing.T) {
	f := NewFactory(dbtest.Open(t))
	first := f.GetRepositories()
	assert.Same(t, first, f.GetRepositories())
	assert.NotNil(t, first.User)
	assert.NotNil(t, first.ShopItem)
	assert.NotNil(t, first.Purchase)
}

func TestShopItemRepositoryCreateKeepsZeroValues(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewShopItemRepository(db)
	item := &models.ShopItem{Name: "retired badge", Category: models.ShopCategoryBadge, PriceCoins: 5, Stock: 0, IsActive: false, TierRequired: models.PlanFree}
	require.NoError(t, repo.Create(item))

	loaded, err := repo.GetByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), loaded.Stock)
	assert.False(t, loaded.IsActive)
}
