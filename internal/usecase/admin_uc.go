package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

type AdminUseCase interface {
	ListOrders(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error)
	Capacity(ctx context.Context, month string) (*model.CapacityEntry, error)
	// ResetCapacity zeroes a month's usage. Administrative only.
	ResetCapacity(ctx context.Context, month string) error
}

type adminUC struct {
	orders   repository.OrderRepository
	capacity repository.CapacityRepository
	maxSlots int

	log *zerolog.Logger
}

func NewAdminUseCase(orders repository.OrderRepository, capacity repository.CapacityRepository, maxSlots int, logger *zerolog.Logger) *adminUC {
	l := logger.With().Str("component", "AdminUC").Logger()
	return &adminUC{orders: orders, capacity: capacity, maxSlots: maxSlots, log: &l}
}

func (a *adminUC) ListOrders(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error) {
	if f.Status != "" && f.Status != model.OrderStatusPending && f.Status != model.OrderStatusPaid && f.Status != model.OrderStatusFailed {
		return nil, domain.NewValidationError("status")
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	return a.orders.List(ctx, repository.NoTX, f)
}

func (a *adminUC) Capacity(ctx context.Context, month string) (*model.CapacityEntry, error) {
	if _, err := model.ParseMonth(month); err != nil {
		return nil, domain.NewValidationError("month")
	}
	return a.capacity.GetOrInit(ctx, repository.NoTX, month, a.maxSlots)
}

func (a *adminUC) ResetCapacity(ctx context.Context, month string) error {
	if _, err := model.ParseMonth(month); err != nil {
		return domain.NewValidationError("month")
	}
	if err := a.capacity.Reset(ctx, repository.NoTX, month); err != nil {
		return err
	}
	a.log.Warn().Str("month", month).Msg("capacity reset by admin")
	return nil
}
