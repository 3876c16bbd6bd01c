package adapter

import (
	"context"
	"time"

	"coach-storefront/internal/domain/model"
)

// Provider order statuses as reported by the gateway.
const (
	RemoteStatusActive     = "ACTIVE"
	RemoteStatusPaid       = "PAID"
	RemoteStatusExpired    = "EXPIRED"
	RemoteStatusTerminated = "TERMINATED"
)

// Provider payment attempt statuses.
const (
	RemotePaymentSuccess = "SUCCESS"
)

// CreateOrderRequest registers intent to pay.
type CreateOrderRequest struct {
	OrderRef  string // local reference, sent as the provider order_id
	Amount    int64  // whole rupees
	Currency  string
	Buyer     model.Buyer
	ReturnURL string
	NotifyURL string
}

// RemoteSession is what the client needs to open the hosted checkout.
type RemoteSession struct {
	SessionHandle string
	RemoteOrderID string
	Environment   string
}

type RemotePayment struct {
	PaymentID string
	Status    string
	Amount    int64
	Time      time.Time
}

// RemoteOrder is the authoritative state fetched from the provider.
type RemoteOrder struct {
	OrderID  string
	Status   string
	Amount   int64
	Payments []RemotePayment
}

func (r *RemoteOrder) IsPaid() bool { return r != nil && r.Status == RemoteStatusPaid }

// IsTerminalUnpaid reports a provider-side final state in which payment can no longer arrive.
func (r *RemoteOrder) IsTerminalUnpaid() bool {
	return r != nil && (r.Status == RemoteStatusExpired || r.Status == RemoteStatusTerminated)
}

// SuccessfulPaymentRef returns the first successful payment id, if any.
func (r *RemoteOrder) SuccessfulPaymentRef() (string, bool) {
	if r == nil {
		return "", false
	}
	for _, p := range r.Payments {
		if p.Status == RemotePaymentSuccess && p.PaymentID != "" {
			return p.PaymentID, true
		}
	}
	return "", false
}

// PaymentGateway is the hex port for the hosted payment provider.
type PaymentGateway interface {
	Name() string
	Environment() string

	// CreateRemoteOrder returns *domain.GatewayError on any non-2xx response.
	CreateRemoteOrder(ctx context.Context, req CreateOrderRequest) (*RemoteSession, error)
	// FetchRemoteOrder re-reads status and payment attempts using server-held credentials.
	FetchRemoteOrder(ctx context.Context, remoteOrderID string) (*RemoteOrder, error)
}
