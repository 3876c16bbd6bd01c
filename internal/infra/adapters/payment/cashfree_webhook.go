package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

const (
	HeaderWebhookSignature = "x-webhook-signature"
	HeaderWebhookTimestamp = "x-webhook-timestamp"
)

var ErrWebhookSignature = errors.New("webhook signature mismatch")

// WebhookVerifier checks Cashfree's base64(HMAC-SHA256(timestamp + raw body)) signature.
type WebhookVerifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewWebhookVerifier(secret string, maxAge time.Duration) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

func SignWebhook(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (v *WebhookVerifier) Verify(timestamp, signature string, body []byte) error {
	if timestamp == "" || signature == "" {
		return ErrWebhookSignature
	}
	expected := SignWebhook(string(v.secret), timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrWebhookSignature
	}
	if v.maxAge > 0 {
		// timestamp is epoch milliseconds
		ms, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrWebhookSignature
		}
		// clock skew is tolerated in both directions, never more than maxAge
		age := v.now().Sub(time.UnixMilli(ms))
		if age > v.maxAge || age < -v.maxAge {
			return ErrWebhookSignature
		}
	}
	return nil
}

// WebhookEvent is the subset of the provider payload needed to locate the order.
// The payload is a hint only; status always comes from FetchRemoteOrder.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
	} `json:"data"`
}

// ParseWebhook extracts the order id. A missing id yields "" and no error.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookEvent{}, err
	}
	return ev, nil
}

func (e WebhookEvent) OrderID() string { return e.Data.Order.OrderID }
