package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
)

const (
	CacheKeyDaily   = "statistics:monetization:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration = 5 * time.Minute
)

// Cache is the subset of the shared cache used for snapshots
type Cache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// Data is a point-in-time summary for the admin dashboard
type Data struct {
	Day                string    `json:"day"`
	TotalUsers         int64     `json:"total_users"`
	PaidOrdersToday    int64     `json:"paid_orders_today"`
	RevenueTodayMinor  int64     `json:"revenue_today_minor"`
	FailedOrdersToday  int64     `json:"failed_orders_today"`
	CoinsInCirculation int64     `json:"coins_in_circulation"`
	HighAuditsToday    int64     `json:"high_audits_today"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// Collector computes Data from the database and keeps a short lived copy
// in the cache. A nil cache disables caching.
type Collector struct {
	db    *gorm.DB
	cache Cache
	now   func() time.Time
}

func NewCollector(db *gorm.DB, cache Cache) *Collector {
	return &Collector{db: db, cache: cache, now: time.Now}
}

// Snapshot returns today's statistics, from cache when fresh.
func (c *Collector) Snapshot(ctx context.Context) (*Data, error) {
	day := c.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf(CacheKeyDaily, day)

	if c.cache != nil {
		if raw, err := c.cache.Get(key); err == nil && raw != "" {
			var d Data
			if err := json.Unmarshal([]byte(raw), &d); err == nil {
				return &d, nil
			}
		}
	}

	d, err := c.collect(ctx, day)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if b, err := json.Marshal(d); err == nil {
			if err := c.cache.Set(key, string(b), CacheExpiration); err != nil {
				log.Warnf("[Statistics] failed to cache snapshot: %v", err)
			}
		}
	}
	return d, nil
}

func (c *Collector) collect(ctx context.Context, day string) (*Data, error) {
	db := c.db.WithContext(ctx)
	start, _ := time.Parse("2006-01-02", day)
	end := start.Add(24 * time.Hour)

	d := &Data{Day: day, GeneratedAt: c.now().UTC()}

	if err := db.Model(&models.User{}).Count(&d.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.User{}).Select("COALESCE(SUM(coins), 0)").Scan(&d.CoinsInCirculation).Error; err != nil {
		return nil, fmt.Errorf("sum coins: %w", err)
	}

	paid := db.Model(&models.Order{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.OrderStatusPaid, start, end)
	if err := paid.Count(&d.PaidOrdersToday).Error; err != nil {
		return nil, fmt.Errorf("count paid orders: %w", err)
	}
	if err := db.Model(&models.Order{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.OrderStatusPaid, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&d.RevenueTodayMinor).Error; err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	if err := db.Model(&models.Order{}).
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.OrderStatusFailed, start, end).
		Count(&d.FailedOrdersToday).Error; err != nil {
		return nil, fmt.Errorf("count failed orders: %w", err)
	}
	if err := db.Model(&models.AuditLog{}).
		Where("severity = ? AND created_at >= ? AND created_at < ?", string(audit.SeverityHigh), start, end).
		Count(&d.HighAuditsToday).Error; err != nil {
		return nil, fmt.Errorf("count audits: %w", err)
	}
	return d, nil
}
