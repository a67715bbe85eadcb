package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/entitlements"
	"github.com/ManuelReschke/PixelVault/internal/pkg/locker"
)

var ErrNoSubscription = apperr.NotFound("no subscription found")

const maxCancelReason = 255

// SubscriptionManager activates, renews, cancels and resumes the single
// subscription a user can hold.
type SubscriptionManager struct {
	repo   Repository
	locker locker.Locker
	audit  audit.Trail
	now    func() time.Time
}

func NewSubscriptionManager(repo Repository, l locker.Locker, trail audit.Trail) *SubscriptionManager {
	if l == nil {
		l = locker.NewLocal()
	}
	return &SubscriptionManager{repo: repo, locker: l, audit: trail, now: time.Now}
}

// Activate creates or renews the user's subscription for a paid order. A
// renewal extends from the later of now and the current expiry. Repeating
// the same order is a no-op; applied reports whether anything changed.
func (m *SubscriptionManager) Activate(ctx context.Context, userID uint, tierID, period, orderNo string) (sub *models.Subscription, applied bool, err error) {
	length := periodLength(period)
	if userID == 0 || !entitlements.IsTier(tierID) || length == 0 {
		return nil, false, apperr.Validation("invalid subscription grant")
	}

	unlock, err := m.locker.Lock(ctx, locker.UserKey(userID))
	if err != nil {
		return nil, false, apperr.Internal(err, "acquire subscription lock")
	}
	defer unlock()

	now := m.now().UTC()
	err = m.repo.WithContext(ctx).Transaction(func(r Repository) error {
		current, err := r.GetSubscriptionForUpdate(userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = &models.Subscription{
				UserID:      userID,
				TierID:      tierID,
				Period:      normalizePeriod(period),
				Status:      models.SubscriptionStatusActive,
				AutoRenew:   true,
				ExpiresAt:   now.Add(length),
				LastOrderNo: orderNo,
			}
			applied = true
			return r.CreateSubscription(sub)
		}
		if err != nil {
			return err
		}
		if orderNo != "" && current.LastOrderNo == orderNo {
			sub = current
			return nil
		}

		base := now
		if current.ExpiresAt.After(base) {
			base = current.ExpiresAt
		}
		current.TierID = tierID
		current.Period = normalizePeriod(period)
		current.Status = models.SubscriptionStatusActive
		current.AutoRenew = true
		current.CancelReason = ""
		current.ExpiresAt = base.Add(length)
		current.LastOrderNo = orderNo
		sub, applied = current, true
		return r.SaveSubscription(current)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, false, err
		}
		return nil, false, apperr.Internal(err, "activate subscription")
	}

	if applied {
		log.Infof("[Subscription] user %d now on %s until %s (order %s)", userID, sub.TierID, sub.ExpiresAt.Format(time.RFC3339), orderNo)
	}
	if _, err := m.ReconcileUserPlan(ctx, userID); err != nil {
		log.Errorf("[Subscription] failed to reconcile plan for user %d: %v", userID, err)
	}
	return sub, applied, nil
}

// CancelSubscription turns auto renewal off. The paid period is kept.
func (m *SubscriptionManager) CancelSubscription(ctx context.Context, userID uint, reason string) (*models.Subscription, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReason {
		reason = reason[:maxCancelReason]
	}
	return m.setAutoRenew(ctx, userID, false, reason)
}

// ResumeAutoRenew turns auto renewal back on.
func (m *SubscriptionManager) ResumeAutoRenew(ctx context.Context, userID uint) (*models.Subscription, error) {
	return m.setAutoRenew(ctx, userID, true, "")
}

func (m *SubscriptionManager) setAutoRenew(ctx context.Context, userID uint, autoRenew bool, reason string) (*models.Subscription, error) {
	repo := m.repo.WithContext(ctx)
	if _, err := m.loadSubscription(repo, userID); err != nil {
		return nil, err
	}
	changed, err := repo.SetAutoRenew(userID, autoRenew, reason)
	if err != nil {
		return nil, apperr.Internal(err, "update subscription")
	}
	sub, err := m.loadSubscription(repo, userID)
	if err != nil {
		return nil, err
	}
	if changed {
		event := audit.EventSubscriptionResumed
		if !autoRenew {
			event = audit.EventSubscriptionCanceled
		}
		m.audit.Log(ctx, audit.Entry{
			Event:    event,
			Severity: audit.SeverityInfo,
			UserID:   userID,
			Message:  reason,
			Details:  map[string]interface{}{"expires_at": sub.ExpiresAt.UTC().Format(time.RFC3339)},
		})
	}
	return sub, nil
}

// GetSubscription returns the user's subscription.
func (m *SubscriptionManager) GetSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	return m.loadSubscription(m.repo.WithContext(ctx), userID)
}

func (m *SubscriptionManager) loadSubscription(repo Repository, userID uint) (*models.Subscription, error) {
	sub, err := repo.GetSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, apperr.Internal(err, "load subscription")
	}
	return sub, nil
}

// ReconcileUserPlan computes and writes the effective plan for a user.
func (m *SubscriptionManager) ReconcileUserPlan(ctx context.Context, userID uint) (string, error) {
	if userID == 0 {
		return "", apperr.Validation("user_id is required")
	}
	repo := m.repo.WithContext(ctx)

	best := string(entitlements.PlanFree)
	sub, err := repo.GetSubscription(userID)
	switch {
	case err == nil:
		if isEntitlingStatus(sub.Status) && sub.ExpiresAt.After(m.now()) {
			if candidate := normalizePlan(sub.TierID); planRank(candidate) > planRank(best) {
				best = candidate
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return "", err
	}

	us, err := repo.GetOrCreateUserSettings(userID)
	if err != nil {
		return "", err
	}
	if normalizePlan(us.Plan) == best {
		return best, nil
	}
	us.Plan = best
	if err := repo.SaveUserSettings(us); err != nil {
		return "", err
	}
	return best, nil
}
