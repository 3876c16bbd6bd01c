package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*OrderStore)(nil)

type OrderStore struct {
	mu    sync.RWMutex
	byID  map[string]*model.Order
	byRef map[string]string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{byID: map[string]*model.Order{}, byRef: map[string]string{}}
}

func clone(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.LineItem(nil), o.Items...)
	if o.PaymentRef != nil {
		ref := *o.PaymentRef
		c.PaymentRef = &ref
	}
	if o.PaidAt != nil {
		at := *o.PaidAt
		c.PaidAt = &at
	}
	return &c
}

func (s *OrderStore) Create(_ context.Context, _ repository.Tx, o *model.Order) error {
	if o == nil {
		return domain.ErrInvalidArgument
	}
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := s.byRef[o.OrderRef]; ok {
		return domain.ErrAlreadyExists
	}
	o.Status = model.OrderStatusPending
	s.byID[o.ID] = clone(o)
	s.byRef[o.OrderRef] = o.ID
	return nil
}

func (s *OrderStore) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(o), nil
}

func (s *OrderStore) FindByGatewayRef(ctx context.Context, tx repository.Tx, ref string) (*model.Order, error) {
	s.mu.RLock()
	id, ok := s.byRef[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.FindByID(ctx, tx, id)
}

func (s *OrderStore) SetSessionHandle(_ context.Context, _ repository.Tx, id, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.SessionHandle = handle
	o.UpdatedAt = time.Now()
	return nil
}

func (s *OrderStore) MarkPaid(_ context.Context, _ repository.Tx, id string, paymentRef *string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusPaid
	if paymentRef != nil {
		ref := *paymentRef
		o.PaymentRef = &ref
	}
	o.PaidAt = &paidAt
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *OrderStore) MarkFailed(_ context.Context, _ repository.Tx, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusFailed
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *OrderStore) FlagCapacityOversold(_ context.Context, _ repository.Tx, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.CapacityOversold = true
	o.UpdatedAt = time.Now()
	return nil
}

func (s *OrderStore) snapshot(keep func(*model.Order) bool) []*model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Order, 0, len(s.byID))
	for _, o := range s.byID {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	return out
}

func (s *OrderStore) ListPendingOlderThan(_ context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := s.snapshot(func(o *model.Order) bool {
		return o.Status == model.OrderStatusPending && o.CreatedAt.Before(olderThan)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *OrderStore) List(_ context.Context, _ repository.Tx, f repository.OrderFilter) ([]*model.Order, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	out := s.snapshot(func(o *model.Order) bool { return f.Status == "" || o.Status == f.Status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset >= len(out) {
		return []*model.Order{}, nil
	}
	if f.Offset > 0 {
		out = out[f.Offset:]
	}
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *OrderStore) CountByStatus(_ context.Context, _ repository.Tx) (map[model.OrderStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[model.OrderStatus]int{}
	for _, o := range s.byID {
		out[o.Status]++
	}
	return out, nil
}

func (s *OrderStore) SumPaidSince(_ context.Context, _ repository.Tx, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, o := range s.byID {
		if o.Status == model.OrderStatusPaid && o.PaidAt != nil && !o.PaidAt.Before(since) {
			sum += o.Amount
		}
	}
	return sum, nil
}
