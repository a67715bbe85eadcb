package billing

import (
	"testing"
	"time"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "free", want: "free"},
		{in: "premium", want: "premium"},
		{in: "premium_max", want: "premium_max"},
		{in: "PREMIUM_MAX", want: "premium_max"},
		{in: "invalid", want: "free"},
	}

	for _, tt := range tests {
		if got := normalizePlan(tt.in); got != tt.want {
			t.Fatalf("normalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanRank(t *testing.T) {
	if planRank("free") >= planRank("premium") {
		t.Fatalf("expected premium to outrank free")
	}
	if planRank("premium") >= planRank("premium_max") {
		t.Fatalf("expected premium_max to outrank premium")
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	if !isEntitlingStatus("active") {
		t.Fatalf("expected active to be entitling")
	}
	for _, status := range []string{"expired", "canceled", ""} {
		if isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestPeriodLength(t *testing.T) {
	tests := []struct {
		period string
		want   time.Duration
	}{
		{"month", 30 * 24 * time.Hour},
		{"Quarter", 90 * 24 * time.Hour},
		{"year", 365 * 24 * time.Hour},
		{"week", 0},
	}
	for _, tt := range tests {
		if got := periodLength(tt.period); got != tt.want {
			t.Fatalf("periodLength(%q) = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestParseSubscriptionProduct(t *testing.T) {
	tier, period, err := ParseSubscriptionProduct("premium:month")
	if err != nil || tier != "premium" || period != "month" {
		t.Fatalf("unexpected parse result %q %q %v", tier, period, err)
	}

	for _, bad := range []string{"", "premium", "free:month", "gold:month", "premium:week", "premium:month:x"} {
		if _, _, err := ParseSubscriptionProduct(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
