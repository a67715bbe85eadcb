package billing

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/orders"
	"github.com/ManuelReschke/PixelVault/internal/pkg/paysign"
)

// Service is the entry point used by the HTTP layer: it prices and creates
// orders, signs the gateway redirect and plays the mock gateway.
type Service struct {
	orders    *orders.Store
	signer    *paysign.Signer
	catalog   *Catalog
	processor *CallbackProcessor
	subs      *SubscriptionManager
	audit     audit.Trail
	payPath   string
}

// Config wires the service dependencies.
type Config struct {
	Orders    *orders.Store
	Signer    *paysign.Signer
	Catalog   *Catalog
	Processor *CallbackProcessor
	Subs      *SubscriptionManager
	Audit     audit.Trail
	// PayPath is the mock gateway page the signed redirect points at.
	PayPath string
}

func NewService(cfg Config) *Service {
	payPath := strings.TrimSpace(cfg.PayPath)
	if payPath == "" {
		payPath = "/pay/complete"
	}
	return &Service{
		orders:    cfg.Orders,
		signer:    cfg.Signer,
		catalog:   cfg.Catalog,
		processor: cfg.Processor,
		subs:      cfg.Subs,
		audit:     cfg.Audit,
		payPath:   payPath,
	}
}

// CreateOrder prices the product, stores a pending order and returns the
// signed redirect to the payment page.
func (s *Service) CreateOrder(ctx context.Context, userID uint, productType, productID string) (*models.Order, string, error) {
	productType = strings.TrimSpace(productType)
	productID = strings.TrimSpace(productID)
	amount, err := s.catalog.Quote(ctx, userID, productType, productID)
	if err != nil {
		return nil, "", err
	}
	order, err := s.orders.CreateOrder(ctx, userID, amount, productType, productID, map[string]interface{}{
		"ttl_seconds": int(s.orders.TTL().Seconds()),
	})
	if err != nil {
		return nil, "", err
	}
	return order, s.signer.SignPayURL(s.payPath, order.OrderNo, order.Amount, order.UserID), nil
}

// GetOrder returns an order owned by userID.
func (s *Service) GetOrder(ctx context.Context, userID uint, orderNo string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, orders.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the recent orders of a user.
func (s *Service) ListOrders(ctx context.Context, userID uint, limit int) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID, limit)
}

// ProcessCallback forwards a gateway notification to the processor.
func (s *Service) ProcessCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	return s.processor.Process(ctx, in)
}

// OpenPayPage verifies a signed redirect and loads its order.
func (s *Service) OpenPayPage(ctx context.Context, q url.Values, ip string) (*paysign.PayParams, *models.Order, error) {
	params, err := s.signer.VerifyPayURL(s.payPath, q)
	if err != nil {
		s.audit.Log(ctx, audit.Entry{
			Event:    audit.EventPayURLInvalid,
			Severity: audit.SeverityHigh,
			OrderNo:  q.Get("order_no"),
			IP:       ip,
			Message:  "payment page opened with invalid or stale signature",
		})
		return nil, nil, err
	}
	order, err := s.orders.GetOrder(ctx, params.OrderNo)
	if err != nil {
		return nil, nil, err
	}
	if order.Amount != params.Amount || order.UserID != params.UserID {
		return nil, nil, apperr.InvalidSignature
	}
	return params, order, nil
}

// CompleteMockPayment plays the external gateway: it re-verifies the signed
// redirect, then delivers a signed callback with the chosen outcome.
func (s *Service) CompleteMockPayment(ctx context.Context, q url.Values, outcome, ip string) (*CallbackResult, error) {
	if outcome != CallbackStatusSuccess && outcome != CallbackStatusFailed {
		return nil, apperr.Validation("unknown payment outcome")
	}
	_, order, err := s.OpenPayPage(ctx, q, ip)
	if err != nil {
		return nil, err
	}
	tradeNo := "MOCK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20]
	cb := s.signer.SignCallback(order.OrderNo, tradeNo, order.Amount, outcome)
	return s.processor.Process(ctx, CallbackInputFromSigned(cb, ip))
}

// CallbackInputFromSigned converts a signed callback into processor input.
func CallbackInputFromSigned(cb paysign.SignedCallback, ip string) CallbackInput {
	return CallbackInput{
		OrderNo:   cb.OrderNo,
		TradeNo:   cb.TradeNo,
		Amount:    json.Number(cb.Amount),
		Status:    cb.Status,
		Timestamp: json.Number(cb.Timestamp),
		Sign:      cb.Sign,
		Nonce:     cb.Nonce,
		IP:        ip,
	}
}

// Subscriptions exposes the subscription manager to the HTTP layer.
func (s *Service) Subscriptions() *SubscriptionManager {
	return s.subs
}

// Catalog exposes product pricing.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}
