// Package checkout is a Go client for the storefront's public checkout API.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// ManualFollowUpMessage is shown when payment could not be confirmed within the retry budget.
const ManualFollowUpMessage = "We could not confirm your payment yet. If you were charged, your order will be confirmed shortly; contact support with your order reference if you do not hear from us."

type Client struct {
	baseURL  string
	http     *http.Client
	Attempts int
	Delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     hc,
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// APIError is a non-2xx answer from the storefront.
type APIError struct {
	StatusCode int
	Message    string   `json:"error"`
	Code       string   `json:"code"`
	Fields     []string `json:"fields"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("checkout api %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("checkout api %d: %s", e.StatusCode, e.Message)
}

// SoldOut reports the month's coaching slots are gone.
func (e *APIError) SoldOut() bool { return e.Code == "slots_exhausted" }

type Item struct {
	ProductID      string `json:"productId"`
	DurationMonths int    `json:"durationMonths,omitempty"`
}

type CreateOrderRequest struct {
	Amount         int64  `json:"amount"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ProductID      string `json:"productId,omitempty"`
	DurationMonths int    `json:"durationMonths,omitempty"`
	Items          []Item `json:"items,omitempty"`
}

type Session struct {
	SessionHandle string `json:"sessionHandle"`
	RemoteOrderID string `json:"remoteOrderId"`
	Environment   string `json:"environment"`
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-order", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, raw)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode create-order response: %w", err)
	}
	return &s, nil
}

func decodeAPIError(code int, raw []byte) *APIError {
	e := &APIError{}
	if err := json.Unmarshal(raw, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	e.StatusCode = code
	return e
}

type Outcome int

const (
	OutcomeInconclusive Outcome = iota
	OutcomePaid
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeNotFound:
		return "not_found"
	}
	return "inconclusive"
}

type Order struct {
	OrderRef  string     `json:"orderRef"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	PaymentID string     `json:"paymentId"`
	PaidAt    *time.Time `json:"paidAt"`
	Items     []struct {
		ProductID      string `json:"productId"`
		Title          string `json:"title"`
		Type           string `json:"type"`
		DurationMonths int    `json:"durationMonths"`
		Price          int64  `json:"price"`
	} `json:"items"`
}

type VerifyResult struct {
	Outcome Outcome
	// Status is the last remote status seen, verbatim.
	Status   string
	Order    *Order
	Attempts int
	// Message is set for OutcomeInconclusive.
	Message string
	// LastErr is the most recent transport or server error, if any.
	LastErr error
}

type verifyBody struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Order   *Order `json:"order"`
}

// VerifyWithRetry polls the verify endpoint up to Attempts times, Delay apart.
// A not-yet-paid status or an unreachable gateway is retried; it never reports a
// definitive failure, only paid, not found, or inconclusive.
func (c *Client) VerifyWithRetry(ctx context.Context, remoteOrderID string) (*VerifyResult, error) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	res := &VerifyResult{Outcome: OutcomeInconclusive, Message: ManualFollowUpMessage}
	var lastErr error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := c.sleep(ctx, c.Delay); err != nil {
				return nil, err
			}
		}
		res.Attempts = i + 1

		code, body, err := c.verifyOnce(ctx, remoteOrderID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		switch {
		case code == http.StatusNotFound:
			res.Outcome, res.Message = OutcomeNotFound, body.Message
			return res, nil
		case code == http.StatusOK && body.Success:
			res.Outcome, res.Status, res.Order, res.Message = OutcomePaid, body.Status, body.Order, ""
			return res, nil
		case code == http.StatusOK:
			res.Status = body.Status
		case code == http.StatusBadRequest:
			return nil, &APIError{StatusCode: code, Message: body.Message}
		default:
			lastErr = &APIError{StatusCode: code, Message: body.Message}
		}
	}
	res.LastErr = lastErr
	return res, nil
}

func (c *Client) verifyOnce(ctx context.Context, remoteOrderID string) (int, verifyBody, error) {
	var body verifyBody
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/verify/"+url.PathEscape(remoteOrderID), nil)
	if err != nil {
		return 0, body, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, body, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil && resp.StatusCode == http.StatusOK {
			return 0, body, fmt.Errorf("decode verify response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
