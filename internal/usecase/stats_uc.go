package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Overview(ctx context.Context) (*Overview, error)
}

type Revenue struct {
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
	Year  int64 `json:"year"`
}

type Overview struct {
	Orders   map[model.OrderStatus]int `json:"orders"`
	Revenue  Revenue                   `json:"revenue"`
	Capacity *model.CapacityEntry      `json:"capacity"`
}

type statsUC struct {
	orders   repository.OrderRepository
	capacity repository.CapacityRepository
	maxSlots int
	loc      *time.Location
	now      func() time.Time

	log *zerolog.Logger
}

func NewStatsUseCase(orders repository.OrderRepository, capacity repository.CapacityRepository, maxSlots int, loc *time.Location, logger *zerolog.Logger) *statsUC {
	if loc == nil {
		loc = time.UTC
	}
	return &statsUC{orders: orders, capacity: capacity, maxSlots: maxSlots, loc: loc, now: time.Now, log: logger}
}

func (s *statsUC) Overview(ctx context.Context) (*Overview, error) {
	counts, err := s.orders.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var rev Revenue
	for _, p := range []struct {
		dst   *int64
		since time.Time
	}{
		{&rev.Week, now.AddDate(0, 0, -7)},
		{&rev.Month, now.AddDate(0, -1, 0)},
		{&rev.Year, now.AddDate(-1, 0, 0)},
	} {
		if *p.dst, err = s.orders.SumPaidSince(ctx, repository.NoTX, p.since); err != nil {
			return nil, err
		}
	}
	entry, err := s.capacity.GetOrInit(ctx, repository.NoTX, model.MonthKey(now, s.loc), s.maxSlots)
	if err != nil {
		return nil, err
	}
	return &Overview{Orders: counts, Revenue: rev, Capacity: entry}, nil
}
