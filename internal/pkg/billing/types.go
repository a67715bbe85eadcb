package billing

import (
	"encoding/json"

	"github.com/ManuelReschke/PixelVault/app/models"
)

const (
	CallbackStatusSuccess = "success"
	CallbackStatusFailed  = "failed"
)

// CallbackInput is a gateway notification as received on the wire. Numeric
// fields accept JSON numbers or strings and keep their raw text for the
// signature check.
type CallbackInput struct {
	OrderNo   string      `json:"order_no" form:"order_no" validate:"required,max=64"`
	TradeNo   string      `json:"trade_no" form:"trade_no" validate:"required,max=128"`
	Amount    json.Number `json:"amount" form:"amount" validate:"required,numeric"`
	Status    string      `json:"status" form:"status" validate:"required,oneof=success failed"`
	Timestamp json.Number `json:"timestamp" form:"timestamp" validate:"required,numeric"`
	Sign      string      `json:"sign" form:"sign" validate:"required,max=128"`
	Nonce     string      `json:"nonce" form:"nonce" validate:"required,max=64"`

	// IP is filled by the transport layer for audit records.
	IP string `json:"-" form:"-" validate:"-"`
}

// CallbackResult is returned for every accepted callback.
type CallbackResult struct {
	Order     *models.Order `json:"order"`
	Duplicate bool          `json:"duplicate"`
	// GrantFailed marks a paid order whose entitlement still needs
	// reconciliation.
	GrantFailed bool `json:"grant_failed"`
}
