package model

import (
	"crypto/rand"
	"net/mail"
	"strings"
	"sync"
	"time"

	"coach-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING" // created locally, gateway order registered (or being registered)
	OrderStatusPaid    OrderStatus = "PAID"    // gateway confirmed payment; terminal
	OrderStatusFailed  OrderStatus = "FAILED"  // gateway rejected or expired the order; terminal
)

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// CanTransitionTo allows only PENDING -> PAID and PENDING -> FAILED.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next.IsTerminal()
}

const CurrencyINR = "INR"

// Buyer is the contact captured at checkout. No account is created.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order is one checkout transaction.
type Order struct {
	ID               string      `json:"id"`        // UUID
	OrderRef         string      `json:"order_ref"` // gateway order_id; unique idempotency key
	Buyer            Buyer       `json:"buyer"`
	Items            []LineItem  `json:"items"`
	Amount           int64       `json:"amount"` // whole rupees
	Currency         string      `json:"currency"`
	CapacityMonth    string      `json:"capacity_month"` // YYYY-MM
	Status           OrderStatus `json:"status"`
	PaymentRef       *string     `json:"payment_ref,omitempty"`
	SessionHandle    string      `json:"-"`
	CapacityOversold bool        `json:"capacity_oversold"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	PaidAt           *time.Time  `json:"paid_at,omitempty"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewOrderRef returns a sortable reference usable as the gateway order_id.
func NewOrderRef(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "ord_" + strings.ToLower(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// NewOrder validates the draft and builds a PENDING order.
func NewOrder(buyer Buyer, items []LineItem, month string, now time.Time) (*Order, error) {
	o := &Order{
		ID:            uuid.NewString(),
		OrderRef:      NewOrderRef(now),
		Buyer:         normalizeBuyer(buyer),
		Items:         items,
		Amount:        TotalOf(items),
		Currency:      CurrencyINR,
		CapacityMonth: month,
		Status:        OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func normalizeBuyer(b Buyer) Buyer {
	return Buyer{
		Name:  strings.TrimSpace(b.Name),
		Email: strings.ToLower(strings.TrimSpace(b.Email)),
		Phone: NormalizePhone(b.Phone),
	}
}

// NormalizePhone strips spaces, dashes and brackets; a leading + is kept.
func NormalizePhone(p string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(p) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate returns a *domain.ValidationError listing every missing or malformed field.
func (o *Order) Validate() error {
	var bad []string
	if o.Buyer.Name == "" {
		bad = append(bad, "name")
	}
	if _, err := mail.ParseAddress(o.Buyer.Email); o.Buyer.Email == "" || err != nil {
		bad = append(bad, "email")
	}
	if digits := strings.TrimPrefix(o.Buyer.Phone, "+"); len(digits) < 10 || len(digits) > 15 {
		bad = append(bad, "phone")
	}
	if len(o.Items) == 0 {
		bad = append(bad, "items")
	}
	for _, it := range o.Items {
		if err := it.Validate(); err != nil {
			bad = append(bad, "items")
			break
		}
	}
	if o.Amount <= 0 {
		bad = append(bad, "amount")
	}
	if _, err := ParseMonth(o.CapacityMonth); err != nil {
		bad = append(bad, "capacity_month")
	}
	if len(bad) > 0 {
		return domain.NewValidationError(bad...)
	}
	return nil
}

// HasCourse reports whether fulfillment of this order consumes a capacity slot.
func (o *Order) HasCourse() bool {
	for _, it := range o.Items {
		if it.ProductType == ProductTypeCourse {
			return true
		}
	}
	return false
}

func (o *Order) IsZero() bool { return o == nil || o.ID == "" }

// Summary is a one-line human description used in notifications and alerts.
func (o *Order) Summary() string {
	titles := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		titles = append(titles, it.Label())
	}
	return strings.Join(titles, ", ")
}
