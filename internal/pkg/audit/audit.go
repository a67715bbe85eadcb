// Package audit records security and money-movement events. Writers never
// fail the caller: a lost audit write is logged, not propagated.
package audit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PixelVault/app/models"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityHigh    Severity = "high"
)

const (
	EventCallbackSignatureInvalid = "callback_signature_invalid"
	EventCallbackDuplicate        = "callback_duplicate"
	EventCallbackRejected         = "callback_rejected"
	EventAmountMismatch           = "amount_mismatch"
	EventOrderPaid                = "order_paid"
	EventOrderFailed              = "order_failed"
	EventOrderExpired             = "order_expired"
	EventEntitlementGrantFailed   = "entitlement_grant_failed"
	EventGrantUnknownProduct      = "grant_unknown_product"
	EventStockRaceRefund          = "stock_race_refund"
	EventPurchaseCompleted        = "purchase_completed"
	EventSubscriptionCanceled     = "subscription_canceled"
	EventSubscriptionResumed      = "subscription_resumed"
	EventPayURLInvalid            = "pay_url_invalid"
)

// Entry is one audit record.
type Entry struct {
	Event    string
	Severity Severity
	UserID   uint
	OrderNo  string
	IP       string
	Message  string
	Details  map[string]interface{}
}

// Trail is the write-only audit sink.
type Trail interface {
	Log(ctx context.Context, e Entry)
}

// GormTrail appends entries to the audit_logs table.
type GormTrail struct {
	db *gorm.DB
}

func NewGormTrail(db *gorm.DB) *GormTrail {
	return &GormTrail{db: db}
}

func (t *GormTrail) Log(ctx context.Context, e Entry) {
	row := toModel(e)
	if err := t.db.WithContext(ctx).Create(row).Error; err != nil {
		log.Errorf("[Audit] failed to write %s (severity=%s order=%s): %v", e.Event, e.Severity, e.OrderNo, err)
		return
	}
	if e.Severity == SeverityHigh {
		log.Warnf("[Audit] high severity event %s order=%s user=%d: %s", e.Event, e.OrderNo, e.UserID, e.Message)
	}
}

func toModel(e Entry) *models.AuditLog {
	sev := e.Severity
	if sev == "" {
		sev = SeverityInfo
	}
	row := &models.AuditLog{
		Event:     e.Event,
		Severity:  string(sev),
		OrderNo:   e.OrderNo,
		IPAddress: e.IP,
		Message:   truncate(e.Message, 255),
	}
	if e.UserID != 0 {
		uid := e.UserID
		row.UserID = &uid
	}
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			row.DetailsJSON = string(b)
		}
	}
	return row
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// MemoryTrail keeps entries in memory. Used by tests and local tooling.
type MemoryTrail struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

func (m *MemoryTrail) Log(_ context.Context, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

// Entries returns a copy of everything logged so far.
func (m *MemoryTrail) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Events returns the logged entries matching event.
func (m *MemoryTrail) Events(event string) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
