// Package dbtest opens throwaway SQLite databases with the service schema
// for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/database"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to the test. The pool
// is limited to one connection, so code under test must run every statement
// of a transaction on the transaction handle.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts an active user with the given coin balance. The balance
// is seeded through a matching ledger entry so consistency checks hold.
func CreateUser(t testing.TB, db *gorm.DB, name string, coins int64) *models.User {
	t.Helper()

	u := &models.User{
		Name:   name,
		Email:  name + "@example.com",
		Role:   models.ROLE_USER,
		Status: models.STATUS_ACTIVE,
		Coins:  coins,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if coins != 0 {
		entry := &models.LedgerEntry{
			UserID:        u.ID,
			Amount:        coins,
			Type:          models.LedgerTypeEarn,
			Source:        "seed",
			BalanceBefore: 0,
			BalanceAfter:  coins,
			Description:   "test seed",
		}
		if err := db.Create(entry).Error; err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	return u
}

// CreateItem inserts a shop item.
func CreateItem(t testing.TB, db *gorm.DB, item *models.ShopItem) *models.ShopItem {
	t.Helper()

	if item.Name == "" {
		item.Name = "item"
	}
	if item.TierRequired == "" {
		item.TierRequired = models.PlanFree
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create item: %v", err)
	}
	// gorm skips zero values that have column defaults on create
	if err := db.Model(item).Updates(map[string]interface{}{
		"stock":     item.Stock,
		"is_active": item.IsActive,
	}).Error; err != nil {
		t.Fatalf("update item: %v", err)
	}
	return item
}
