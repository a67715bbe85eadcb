// Package paysign signs and verifies payment redirect URLs and gateway
// callbacks with HMAC-SHA256 and a bounded replay window.
package paysign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/PixelVault/internal/pkg/apperr"
)

// DefaultWindow is the maximum clock distance accepted for a signed timestamp.
const DefaultWindow = 300 * time.Second

// Signer holds the process-wide payment secret. It is safe for concurrent use.
type Signer struct {
	secret []byte
	window time.Duration
	now    func() time.Time
	nonce  func() string
}

// NewSigner returns a signer for the given secret. A non-positive window
// falls back to DefaultWindow.
func NewSigner(secret string, window time.Duration) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("payment secret is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Signer{
		secret: []byte(secret),
		window: window,
		now:    time.Now,
		nonce:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}, nil
}

// WithClock returns a copy of the signer reading time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Window returns the accepted timestamp distance.
func (s *Signer) Window() time.Duration {
	return s.window
}

// PayParams are the verified query parameters of a redirect URL.
type PayParams struct {
	OrderNo   string
	Amount    int64
	UserID    uint
	Timestamp int64
	Nonce     string
}

// SignPayURL returns path with order_no, amount, uid, ts, nonce and sign
// query parameters. The signature covers path|order_no|amount|uid|ts|nonce.
func (s *Signer) SignPayURL(path, orderNo string, amount int64, userID uint) string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	nonce := s.nonce()
	amt := strconv.FormatInt(amount, 10)
	uid := strconv.FormatUint(uint64(userID), 10)

	q := url.Values{}
	q.Set("order_no", orderNo)
	q.Set("amount", amt)
	q.Set("uid", uid)
	q.Set("ts", ts)
	q.Set("nonce", nonce)
	q.Set("sign", s.sign(path, orderNo, amt, uid, ts, nonce))

	return path + "?" + q.Encode()
}

// VerifyPayURL checks the signature and freshness of redirect parameters.
// Every failure returns apperr.InvalidSignature.
func (s *Signer) VerifyPayURL(path string, q url.Values) (*PayParams, error) {
	orderNo := q.Get("order_no")
	amt := q.Get("amount")
	uid := q.Get("uid")
	ts := q.Get("ts")
	nonce := q.Get("nonce")
	sign := q.Get("sign")
	if orderNo == "" || amt == "" || uid == "" || ts == "" || nonce == "" || sign == "" {
		return nil, apperr.InvalidSignature
	}
	if !s.validMAC(sign, path, orderNo, amt, uid, ts, nonce) {
		return nil, apperr.InvalidSignature
	}
	timestamp, ok := s.fresh(ts)
	if !ok {
		return nil, apperr.InvalidSignature
	}
	amount, err := strconv.ParseInt(amt, 10, 64)
	if err != nil {
		return nil, apperr.InvalidSignature
	}
	userID, err := strconv.ParseUint(uid, 10, 64)
	if err != nil {
		return nil, apperr.InvalidSignature
	}
	return &PayParams{
		OrderNo:   orderNo,
		Amount:    amount,
		UserID:    uint(userID),
		Timestamp: timestamp,
		Nonce:     nonce,
	}, nil
}

// CallbackFields are the signed fields of a gateway callback in their raw
// transport form.
type CallbackFields struct {
	OrderNo   string
	TradeNo   string
	Amount    string
	Status    string
	Timestamp string
	Nonce     string
}

// SignedCallback is a callback payload ready to be delivered.
type SignedCallback struct {
	CallbackFields
	Sign string
}

// Values encodes the callback as form values.
func (c SignedCallback) Values() url.Values {
	v := url.Values{}
	v.Set("order_no", c.OrderNo)
	v.Set("trade_no", c.TradeNo)
	v.Set("amount", c.Amount)
	v.Set("status", c.Status)
	v.Set("timestamp", c.Timestamp)
	v.Set("nonce", c.Nonce)
	v.Set("sign", c.Sign)
	return v
}

// SignCallback builds a signed callback over
// order_no|trade_no|amount|status|timestamp|nonce.
func (s *Signer) SignCallback(orderNo, tradeNo string, amount int64, status string) SignedCallback {
	f := CallbackFields{
		OrderNo:   orderNo,
		TradeNo:   tradeNo,
		Amount:    strconv.FormatInt(amount, 10),
		Status:    status,
		Timestamp: strconv.FormatInt(s.now().Unix(), 10),
		Nonce:     s.nonce(),
	}
	return SignedCallback{
		CallbackFields: f,
		Sign:           s.sign(f.OrderNo, f.TradeNo, f.Amount, f.Status, f.Timestamp, f.Nonce),
	}
}

// VerifyCallback checks the signature and freshness of a callback. Every
// failure returns apperr.InvalidSignature.
func (s *Signer) VerifyCallback(f CallbackFields, sign string) error {
	if sign == "" || f.Timestamp == "" || f.Nonce == "" {
		return apperr.InvalidSignature
	}
	if !s.validMAC(sign, f.OrderNo, f.TradeNo, f.Amount, f.Status, f.Timestamp, f.Nonce) {
		return apperr.InvalidSignature
	}
	if _, ok := s.fresh(f.Timestamp); !ok {
		return apperr.InvalidSignature
	}
	return nil
}

func (s *Signer) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) validMAC(sign string, parts ...string) bool {
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(sign)))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, "|")))
	return hmac.Equal(mac.Sum(nil), got)
}

func (s *Signer) fresh(ts string) (int64, bool) {
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, false
	}
	// whole seconds; a Duration offset overflows for far-off timestamps
	now := s.now().Unix()
	window := int64(s.window / time.Second)
	return timestamp, timestamp >= now-window && timestamp <= now+window
}
