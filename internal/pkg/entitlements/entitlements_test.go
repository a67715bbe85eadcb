package entitlements

import (
	"testing"

	"github.com/ManuelReschke/PixelVault/app/models"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "premium", want: PlanPremium},
		{in: " PREMIUM_MAX ", want: PlanPremiumMax},
		{in: "gold", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeets(t *testing.T) {
	tests := []struct {
		plan, required string
		want           bool
	}{
		{"free", "", true},
		{"free", "free", true},
		{"free", "premium", false},
		{"premium", "premium", true},
		{"premium", "premium_max", false},
		{"premium_max", "premium", true},
		{"premium_max", "unknown", true},
	}

	for _, tt := range tests {
		if got := Meets(tt.plan, tt.required); got != tt.want {
			t.Fatalf("Meets(%q, %q) = %v, want %v", tt.plan, tt.required, got, tt.want)
		}
	}
}

func TestIsTierAndForUser(t *testing.T) {
	if IsTier("free") || !IsTier("premium") || !IsTier("premium_max") {
		t.Fatalf("unexpected tier classification")
	}
	if got := ForUser(&models.UserSettings{Plan: "premium"}); got != PlanPremium {
		t.Fatalf("ForUser = %q, want premium", got)
	}
	if got := ForUser(nil); got != PlanFree {
		t.Fatalf("ForUser(nil) = %q, want free", got)
	}
}
