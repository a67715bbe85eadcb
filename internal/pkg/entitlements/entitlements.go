package entitlements

import (
	"strings"

	"github.com/ManuelReschke/PixelVault/app/models"
)

type Plan string

const (
	PlanFree       Plan = models.PlanFree
	PlanPremium    Plan = models.PlanPremium
	PlanPremiumMax Plan = models.PlanPremiumMax
)

// NormalizePlan maps free-form input to a known plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanPremium:
		return PlanPremium
	case PlanPremiumMax:
		return PlanPremiumMax
	default:
		return PlanFree
	}
}

// Rank orders plans so higher tiers compare greater.
func Rank(plan Plan) int {
	switch plan {
	case PlanPremiumMax:
		return 2
	case PlanPremium:
		return 1
	default:
		return 0
	}
}

// Meets reports whether plan satisfies the required tier. Unknown or empty
// requirements mean free.
func Meets(plan, required string) bool {
	return Rank(NormalizePlan(plan)) >= Rank(NormalizePlan(required))
}

// IsTier reports whether tierID names a paid tier.
func IsTier(tierID string) bool {
	switch Plan(tierID) {
	case PlanPremium, PlanPremiumMax:
		return true
	}
	return false
}

// ForUser returns the plan a user is entitled to from the stored settings.
func ForUser(us *models.UserSettings) Plan {
	return NormalizePlan(us.EffectivePlan())
}
