package billing

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/entitlements"
)

func normalizePlan(plan string) string {
	return string(entitlements.NormalizePlan(plan))
}

func planRank(plan string) int {
	return entitlements.Rank(entitlements.NormalizePlan(plan))
}

func normalizePeriod(period string) string {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case models.PeriodMonth, models.PeriodQuarter, models.PeriodYear:
		return p
	default:
		return ""
	}
}

// periodLength is the entitlement time bought by one payment.
func periodLength(period string) time.Duration {
	switch normalizePeriod(period) {
	case models.PeriodMonth:
		return 30 * 24 * time.Hour
	case models.PeriodQuarter:
		return 90 * 24 * time.Hour
	case models.PeriodYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

func isEntitlingStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == models.SubscriptionStatusActive
}

// ParseSubscriptionProduct splits a "tierId:period" product id.
func ParseSubscriptionProduct(productID string) (tierID, period string, err error) {
	parts := strings.Split(strings.TrimSpace(productID), ":")
	if len(parts) != 2 {
		return "", "", apperr.Validation("subscription product must be tier:period")
	}
	tierID = normalizePlan(parts[0])
	if !entitlements.IsTier(tierID) {
		return "", "", apperr.Validation("unknown tier %q", parts[0])
	}
	period = normalizePeriod(parts[1])
	if period == "" {
		return "", "", apperr.Validation("unknown period %q", parts[1])
	}
	return tierID, period, nil
}
