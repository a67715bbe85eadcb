package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PixelVault/app/models"
	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
	"github.com/ManuelReschke/PixelVault/internal/pkg/audit"
	"github.com/ManuelReschke/PixelVault/internal/pkg/orders"
	"github.com/ManuelReschke/PixelVault/internal/pkg/paysign"
)

var (
	ErrOrderNotPending = apperr.Conflict("order is not pending").WithStatus(400)
	ErrOrderExpired    = apperr.Conflict("order has expired").WithStatus(400)
	ErrAmountMismatch  = apperr.Validation("amount does not match order")
)

// CallbackProcessor verifies gateway notifications and settles orders. The
// order status CAS is the only point of no return: anything failing before
// it leaves the order untouched, anything failing after it is logged and
// audited but still answered with success.
type CallbackProcessor struct {
	orders   *orders.Store
	signer   *paysign.Signer
	grantor  EntitlementGranter
	repo     Repository
	audit    audit.Trail
	validate *validator.Validate
}

func NewCallbackProcessor(store *orders.Store, signer *paysign.Signer, grantor EntitlementGranter, repo Repository, trail audit.Trail) *CallbackProcessor {
	return &CallbackProcessor{
		orders:   store,
		signer:   signer,
		grantor:  grantor,
		repo:     repo,
		audit:    trail,
		validate: validator.New(),
	}
}

func (p *CallbackProcessor) Process(ctx context.Context, in CallbackInput) (res *CallbackResult, err error) {
	in.OrderNo = strings.TrimSpace(in.OrderNo)
	in.TradeNo = strings.TrimSpace(in.TradeNo)
	if verr := p.validate.Struct(in); verr != nil {
		p.reject(ctx, in, "missing or malformed callback fields")
		return nil, apperr.Validation("missing or malformed callback fields")
	}
	amount, perr := strconv.ParseInt(in.Amount.String(), 10, 64)
	if perr != nil {
		p.reject(ctx, in, "non-integer callback amount")
		return nil, apperr.Validation("amount must be an integer in minor units")
	}

	fields := paysign.CallbackFields{
		OrderNo:   in.OrderNo,
		TradeNo:   in.TradeNo,
		Amount:    in.Amount.String(),
		Status:    in.Status,
		Timestamp: in.Timestamp.String(),
		Nonce:     in.Nonce,
	}
	sigErr := p.signer.VerifyCallback(fields, in.Sign)

	eventID := p.recordEvent(ctx, in, sigErr == nil)
	defer func() {
		p.markProcessed(ctx, eventID, err)
	}()

	if sigErr != nil {
		p.audit.Log(ctx, audit.Entry{
			Event:    audit.EventCallbackSignatureInvalid,
			Severity: audit.SeverityHigh,
			OrderNo:  in.OrderNo,
			IP:       in.IP,
			Message:  "callback rejected by signature or freshness check",
		})
		return nil, sigErr
	}

	order, err := p.orders.GetOrder(ctx, in.OrderNo)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			p.reject(ctx, in, "callback for unknown order")
		} else {
			p.reject(ctx, in, "order lookup failed")
		}
		return nil, err
	}

	if !order.IsPending() {
		if isReplayOfPaid(order, in, amount) {
			p.audit.Log(ctx, p.entry(order, in, audit.EventCallbackDuplicate, audit.SeverityInfo, "identical success callback for paid order"))
			return &CallbackResult{Order: order, Duplicate: true}, nil
		}
		p.audit.Log(ctx, p.entry(order, in, audit.EventCallbackRejected, audit.SeverityWarning, "callback for order in status "+order.Status))
		return nil, ErrOrderNotPending
	}

	if p.orders.IsExpired(order) {
		if _, terr := p.orders.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusFailed, in.TradeNo, nil); terr != nil {
			log.Errorf("[Callback] failed to expire order %s: %v", order.OrderNo, terr)
		}
		p.audit.Log(ctx, p.entry(order, in, audit.EventOrderExpired, audit.SeverityWarning, "late callback for expired order"))
		return nil, ErrOrderExpired
	}

	if amount != order.Amount {
		if _, terr := p.orders.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusFailed, in.TradeNo, nil); terr != nil {
			log.Errorf("[Callback] failed to fail order %s after amount mismatch: %v", order.OrderNo, terr)
		}
		e := p.entry(order, in, audit.EventAmountMismatch, audit.SeverityHigh, "callback amount does not match order")
		e.Details["expected"] = order.Amount
		e.Details["received"] = in.Amount.String()
		p.audit.Log(ctx, e)
		return nil, ErrAmountMismatch
	}

	if in.Status == CallbackStatusFailed {
		ok, err := p.orders.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusFailed, in.TradeNo, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return p.lostRace(ctx, in, amount)
		}
		order.Status = models.OrderStatusFailed
		p.audit.Log(ctx, p.entry(order, in, audit.EventOrderFailed, audit.SeverityInfo, "gateway reported failed payment"))
		return &CallbackResult{Order: order}, nil
	}

	paidAt := time.Now().UTC()
	ok, err := p.orders.TransitionOrder(ctx, order.OrderNo, models.OrderStatusPending, models.OrderStatusPaid, in.TradeNo, &paidAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p.lostRace(ctx, in, amount)
	}
	order.Status = models.OrderStatusPaid
	order.TradeNo = &in.TradeNo
	order.PaidAt = &paidAt

	res = &CallbackResult{Order: order}
	if gerr := p.grantor.Grant(ctx, order); gerr != nil {
		res.GrantFailed = true
		log.Errorf("[Callback] order %s is paid but entitlement grant failed, needs reconciliation: %v", order.OrderNo, gerr)
		e := p.entry(order, in, audit.EventEntitlementGrantFailed, audit.SeverityHigh, "paid order not granted")
		e.Details["error"] = gerr.Error()
		p.audit.Log(ctx, e)
	}
	p.audit.Log(ctx, p.entry(order, in, audit.EventOrderPaid, audit.SeverityInfo, "order paid"))
	return res, nil
}

// lostRace handles a CAS that matched no row: another delivery settled the
// order between our read and our update.
func (p *CallbackProcessor) lostRace(ctx context.Context, in CallbackInput, amount int64) (*CallbackResult, error) {
	order, err := p.orders.GetOrder(ctx, in.OrderNo)
	if err != nil {
		return nil, err
	}
	if isReplayOfPaid(order, in, amount) {
		p.audit.Log(ctx, p.entry(order, in, audit.EventCallbackDuplicate, audit.SeverityInfo, "concurrent identical success callback"))
		return &CallbackResult{Order: order, Duplicate: true}, nil
	}
	p.audit.Log(ctx, p.entry(order, in, audit.EventCallbackRejected, audit.SeverityWarning, "order settled concurrently as "+order.Status))
	return nil, ErrOrderNotPending
}

func isReplayOfPaid(order *models.Order, in CallbackInput, amount int64) bool {
	return order.Status == models.OrderStatusPaid &&
		in.Status == CallbackStatusSuccess &&
		order.TradeNoValue() == in.TradeNo &&
		order.Amount == amount
}

func (p *CallbackProcessor) entry(order *models.Order, in CallbackInput, event string, sev audit.Severity, msg string) audit.Entry {
	return audit.Entry{
		Event:    event,
		Severity: sev,
		UserID:   order.UserID,
		OrderNo:  order.OrderNo,
		IP:       in.IP,
		Message:  msg,
		Details: map[string]interface{}{
			"trade_no":        in.TradeNo,
			"callback_status": in.Status,
			"order_status":    order.Status,
		},
	}
}

// reject audits a callback turned away before an order could be loaded.
func (p *CallbackProcessor) reject(ctx context.Context, in CallbackInput, msg string) {
	p.audit.Log(ctx, audit.Entry{
		Event:    audit.EventCallbackRejected,
		Severity: audit.SeverityWarning,
		OrderNo:  in.OrderNo,
		IP:       in.IP,
		Message:  msg,
		Details: map[string]interface{}{
			"trade_no":        in.TradeNo,
			"callback_status": in.Status,
		},
	})
}

func (p *CallbackProcessor) recordEvent(ctx context.Context, in CallbackInput, signatureValid bool) uint {
	if p.repo == nil {
		return 0
	}
	payload, _ := json.Marshal(map[string]string{
		"order_no":  in.OrderNo,
		"trade_no":  in.TradeNo,
		"amount":    in.Amount.String(),
		"status":    in.Status,
		"timestamp": in.Timestamp.String(),
		"nonce":     in.Nonce,
		"sign":      in.Sign,
	})
	sum := sha256.Sum256(payload)
	event := &models.PaymentCallbackEvent{
		OrderNo:        in.OrderNo,
		PayloadHash:    hex.EncodeToString(sum[:]),
		TradeNo:        in.TradeNo,
		Status:         in.Status,
		PayloadJSON:    string(payload),
		SignatureValid: signatureValid,
	}
	created, stored, err := p.repo.WithContext(ctx).CreateCallbackEventIfNotExists(event)
	if err != nil {
		log.Errorf("[Callback] failed to record callback for order %s: %v", in.OrderNo, err)
		return 0
	}
	if !created {
		log.Infof("[Callback] repeated delivery #%d for order %s", stored.Deliveries, in.OrderNo)
	}
	return stored.ID
}

func (p *CallbackProcessor) markProcessed(ctx context.Context, eventID uint, err error) {
	if p.repo == nil || eventID == 0 {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if merr := p.repo.WithContext(ctx).MarkCallbackProcessed(eventID, msg); merr != nil {
		log.Errorf("[Callback] failed to mark callback %d processed: %v", eventID, merr)
	}
}
