package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/config"
	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/ports/adapter"
	"coach-storefront/internal/infra/logging"
	"coach-storefront/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*CashfreeGateway)(nil)

const (
	cashfreeSandboxURL    = "https://sandbox.cashfree.com/pg"
	cashfreeProductionURL = "https://api.cashfree.com/pg"
)

// CashfreeGateway implements adapter.PaymentGateway against Cashfree PG REST.
// Credentials never leave the server; only the payment_session_id reaches the browser.
type CashfreeGateway struct {
	appID      string
	secret     string
	env        string
	apiVersion string
	baseURL    string
	client     *http.Client
	logger     *zerolog.Logger
}

func NewCashfreeGateway(cfg config.CashfreeConfig, logger *zerolog.Logger) (*CashfreeGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = cashfreeSandboxURL
		if cfg.Environment == config.EnvProduction {
			base = cashfreeProductionURL
		}
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid cashfree base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "CashfreeGateway").Str("environment", cfg.Environment).Logger()
	return &CashfreeGateway{
		appID:      cfg.AppID,
		secret:     cfg.SecretKey,
		env:        cfg.Environment,
		apiVersion: cfg.APIVersion,
		baseURL:    strings.TrimRight(base, "/"),
		client:     &http.Client{Timeout: timeout},
		logger:     &l,
	}, nil
}

func (g *CashfreeGateway) Name() string        { return "cashfree" }
func (g *CashfreeGateway) Environment() string { return g.env }

type cfCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cfOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cfCreateOrder struct {
	OrderID         string      `json:"order_id"`
	OrderAmount     float64     `json:"order_amount"`
	OrderCurrency   string      `json:"order_currency"`
	CustomerDetails cfCustomer  `json:"customer_details"`
	OrderMeta       cfOrderMeta `json:"order_meta"`
}

type cfOrder struct {
	CFOrderID        any     `json:"cf_order_id"`
	OrderID          string  `json:"order_id"`
	OrderAmount      float64 `json:"order_amount"`
	OrderStatus      string  `json:"order_status"`
	PaymentSessionID string  `json:"payment_session_id"`
}

type cfPayment struct {
	CFPaymentID   any     `json:"cf_payment_id"`
	PaymentStatus string  `json:"payment_status"`
	PaymentAmount float64 `json:"payment_amount"`
	PaymentTime   string  `json:"payment_time"`
}

type cfError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// customerID derives a stable, provider-safe id from the phone number.
func customerID(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "guest"
	}
	return "cust_" + b.String()
}

// localPhone drops the country code; Cashfree expects 10 digits for INR.
func localPhone(phone string) string {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

func (g *CashfreeGateway) CreateRemoteOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteSession, error) {
	const op = "create_order"
	body := cfCreateOrder{
		OrderID:       req.OrderRef,
		OrderAmount:   float64(req.Amount),
		OrderCurrency: req.Currency,
		CustomerDetails: cfCustomer{
			CustomerID:    customerID(req.Buyer.Phone),
			CustomerName:  req.Buyer.Name,
			CustomerEmail: req.Buyer.Email,
			CustomerPhone: localPhone(req.Buyer.Phone),
		},
		OrderMeta: cfOrderMeta{ReturnURL: req.ReturnURL, NotifyURL: req.NotifyURL},
	}

	var out cfOrder
	if err := g.do(ctx, op, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	if out.PaymentSessionID == "" {
		return nil, &domain.GatewayError{Op: op, Kind: domain.GatewayRejected, Code: "missing_session", Message: "no payment_session_id in response"}
	}
	remoteID := out.OrderID
	if remoteID == "" {
		remoteID = req.OrderRef
	}
	return &adapter.RemoteSession{
		SessionHandle: out.PaymentSessionID,
		RemoteOrderID: remoteID,
		Environment:   g.env,
	}, nil
}

func (g *CashfreeGateway) FetchRemoteOrder(ctx context.Context, remoteOrderID string) (*adapter.RemoteOrder, error) {
	if remoteOrderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	path := "/orders/" + url.PathEscape(remoteOrderID)

	var order cfOrder
	if err := g.do(ctx, "fetch_order", http.MethodGet, path, nil, &order); err != nil {
		return nil, err
	}
	ro := &adapter.RemoteOrder{
		OrderID: order.OrderID,
		Status:  strings.ToUpper(order.OrderStatus),
		Amount:  int64(order.OrderAmount),
	}

	var payments []cfPayment
	if err := g.do(ctx, "fetch_payments", http.MethodGet, path+"/payments", nil, &payments); err != nil {
		// A PAID order without a readable payment list still confirms; the ref stays empty.
		if !ro.IsPaid() {
			return nil, err
		}
		g.logger.Warn().Err(err).Str("order_ref", remoteOrderID).Msg("payments lookup failed for paid order")
		return ro, nil
	}
	for _, p := range payments {
		rp := adapter.RemotePayment{
			PaymentID: idString(p.CFPaymentID),
			Status:    strings.ToUpper(p.PaymentStatus),
			Amount:    int64(p.PaymentAmount),
		}
		if t, err := time.Parse(time.RFC3339, p.PaymentTime); err == nil {
			rp.Time = t
		}
		ro.Payments = append(ro.Payments, rp)
	}
	return ro, nil
}

// idString normalizes cf ids, which arrive as either JSON numbers or strings.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case json.Number:
		return t.String()
	}
	return ""
}

func (g *CashfreeGateway) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	result := "ok"
	defer func() {
		if err != nil {
			var ge *domain.GatewayError
			if errors.As(err, &ge) {
				result = ge.Diagnostic()
			} else {
				result = "error"
			}
		}
		metrics.ObserveGatewayCall(op, result, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		b, mErr := json.Marshal(in)
		if mErr != nil {
			return fmt.Errorf("cashfree %s: encode: %w", op, mErr)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("cashfree %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-client-id", g.appID)
	req.Header.Set("x-client-secret", g.secret)
	req.Header.Set("x-api-version", g.apiVersion)
	if tid := logging.TraceIDFrom(ctx); tid != "" {
		req.Header.Set("x-request-id", tid)
	}

	g.logger.Debug().
		Str("op", op).
		Str("app_id", logging.Mask(g.appID)).
		Str("secret", logging.Mask(g.secret)).
		Str("path", path).
		Msg("gateway call")

	resp, err := g.client.Do(req)
	if err != nil {
		return &domain.GatewayError{Op: op, Kind: domain.GatewayTransient, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &domain.GatewayError{Op: op, Kind: domain.GatewayTransient, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ce cfError
		_ = json.Unmarshal(raw, &ce)
		gerr := &domain.GatewayError{
			Op:         op,
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Code:       ce.Code,
			Message:    ce.Message,
		}
		g.logger.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("code", ce.Code).
			Str("message", ce.Message).
			Str("app_id", logging.Mask(g.appID)).
			Msg("gateway call failed")
		return gerr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.GatewayError{Op: op, Kind: domain.GatewayTransient, StatusCode: resp.StatusCode, Code: "bad_response", Err: err}
	}
	return nil
}

func classifyStatus(code int) domain.GatewayErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.GatewayAuth
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.GatewayTransient
	default:
		return domain.GatewayRejected
	}
}
