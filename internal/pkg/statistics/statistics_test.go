package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database/dbtest"
)

type mapCache struct {
	values map[string]string
	sets   int
}

func (m *mapCache) Get(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (m *mapCache) Set(key string, value interface{}, _ time.Duration) error {
	m.sets++
	m.values[key] = value.(string)
	return nil
}

func TestSnapshotCountsPaidOrders(t *testing.T) {
	db := dbtest.Open(t)
	alice := dbtest.CreateUser(t, db, "alice", 120)
	dbtest.CreateUser(t, db, "bob", 30)

	now := time.Now().UTC()
	yesterday := now.Add(-48 * time.Hour)
	trade := "T-1"
	orders := []models.Order{
		{OrderNo: "PV-1", UserID: alice.ID, Amount: 999, ProductType: models.ProductTypeCoins, ProductID: "500", Status: models.OrderStatusPaid, TradeNo: &trade, PaidAt: &now},
		{OrderNo: "PV-2", UserID: alice.ID, Amount: 199, ProductType: models.ProductTypeCoins, ProductID: "100", Status: models.OrderStatusPaid, PaidAt: &now},
		{OrderNo: "PV-3", UserID: alice.ID, Amount: 1500, ProductType: models.ProductTypeSubscription, ProductID: "premium:month", Status: models.OrderStatusPaid, PaidAt: &yesterday},
		{OrderNo: "PV-4", UserID: alice.ID, Amount: 199, ProductType: models.ProductTypeCoins, ProductID: "100", Status: models.OrderStatusPending},
	}
	require.NoError(t, db.Create(&orders).Error)

	cache := &mapCache{values: map[string]string{}}
	c := NewCollector(db, cache)

	d, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Format("2006-01-02"), d.Day)
	assert.Equal(t, int64(2), d.TotalUsers)
	assert.Equal(t, int64(150), d.CoinsInCirculation)
	assert.Equal(t, int64(2), d.PaidOrdersToday)
	assert.Equal(t, int64(1198), d.RevenueTodayMinor)
	assert.Equal(t, 1, cache.sets)

	// served from cache until it expires
	dbtest.CreateUser(t, db, "carol", 0)
	again, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.TotalUsers)
	assert.Equal(t, 1, cache.sets)
}

func TestSnapshotWithoutCache(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.CreateUser(t, db, "dora", 0)

	d, err := NewCollector(db, nil).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.TotalUsers)
	assert.Zero(t, d.PaidOrdersToday)
	assert.Zero(t, d.RevenueTodayMinor)
}
