package payment

import (
	"context"
	"fmt"
	"sync"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for -dev mode and tests.
// Orders start ACTIVE; MarkPaid and Expire drive them like the hosted checkout would.
type NoopPaymentGateway struct {
	mu     sync.Mutex
	seq    int64
	orders map[string]*adapter.RemoteOrder

	// CreateErr and FetchErr, when set, are returned instead of the normal result.
	CreateErr error
	FetchErr  error
	Creates   int
	Fetches   int
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{orders: make(map[string]*adapter.RemoteOrder)}
}

func (g *NoopPaymentGateway) Name() string        { return "noop" }
func (g *NoopPaymentGateway) Environment() string { return "sandbox" }

func (g *NoopPaymentGateway) CreateRemoteOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Creates++
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	if _, ok := g.orders[req.OrderRef]; ok {
		return nil, &domain.GatewayError{Op: "create_order", Kind: domain.GatewayRejected, StatusCode: 409, Code: "order_already_exists"}
	}
	g.seq++
	g.orders[req.OrderRef] = &adapter.RemoteOrder{OrderID: req.OrderRef, Status: adapter.RemoteStatusActive, Amount: req.Amount}
	return &adapter.RemoteSession{
		SessionHandle: fmt.Sprintf("session_noop_%d", g.seq),
		RemoteOrderID: req.OrderRef,
		Environment:   g.Environment(),
	}, nil
}

func (g *NoopPaymentGateway) FetchRemoteOrder(ctx context.Context, remoteOrderID string) (*adapter.RemoteOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Fetches++
	if g.FetchErr != nil {
		return nil, g.FetchErr
	}
	o, ok := g.orders[remoteOrderID]
	if !ok {
		return nil, &domain.GatewayError{Op: "fetch_order", Kind: domain.GatewayRejected, StatusCode: 404, Code: "order_not_found"}
	}
	cp := *o
	cp.Payments = append([]adapter.RemotePayment(nil), o.Payments...)
	return &cp, nil
}

// MarkPaid simulates a completed checkout.
func (g *NoopPaymentGateway) MarkPaid(remoteOrderID, paymentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[remoteOrderID]
	if !ok {
		return false
	}
	o.Status = adapter.RemoteStatusPaid
	o.Payments = append(o.Payments, adapter.RemotePayment{PaymentID: paymentID, Status: adapter.RemotePaymentSuccess, Amount: o.Amount})
	return true
}

func (g *NoopPaymentGateway) Expire(remoteOrderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[remoteOrderID]
	if !ok {
		return false
	}
	o.Status = adapter.RemoteStatusExpired
	return true
}

// SetStatus forces an arbitrary provider status.
func (g *NoopPaymentGateway) SetStatus(remoteOrderID, status string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[remoteOrderID]
	if !ok {
		return false
	}
	o.Status = status
	return true
}
