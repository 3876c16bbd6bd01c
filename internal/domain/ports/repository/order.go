package repository

import (
	"context"
	"time"

	"coach-storefront/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderFilter struct {
	Status model.OrderStatus // empty = any
	Offset int
	Limit  int
}

type OrderRepository interface {
	// Create inserts a PENDING order; *domain.ValidationError on missing fields.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	// FindByGatewayRef returns domain.ErrNotFound when the reference is unknown.
	FindByGatewayRef(ctx context.Context, tx Tx, ref string) (*model.Order, error)
	SetSessionHandle(ctx context.Context, tx Tx, id, handle string) error

	// MarkPaid sets PAID only where status is PENDING. transitioned is false when
	// another caller already moved the order; that is not an error.
	MarkPaid(ctx context.Context, tx Tx, id string, paymentRef *string, paidAt time.Time) (transitioned bool, err error)
	// MarkFailed sets FAILED only where status is PENDING.
	MarkFailed(ctx context.Context, tx Tx, id string) (transitioned bool, err error)
	// FlagCapacityOversold records the paid-but-no-slot anomaly.
	FlagCapacityOversold(ctx context.Context, tx Tx, id string) error

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
	List(ctx context.Context, tx Tx, f OrderFilter) ([]*model.Order, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.OrderStatus]int, error)
	// SumPaidSince totals paid order amounts with paid_at >= since.
	SumPaidSince(ctx context.Context, tx Tx, since time.Time) (int64, error)
}
