package memory

import (
	"context"
	"sync"
	"time"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var _ repository.CapacityRepository = (*CapacityStore)(nil)

type CapacityStore struct {
	mu      sync.Mutex
	entries map[string]*model.CapacityEntry
}

func NewCapacityStore() *CapacityStore {
	return &CapacityStore{entries: map[string]*model.CapacityEntry{}}
}

// entry must be called with mu held.
func (s *CapacityStore) entry(month string, maxSlots int) (*model.CapacityEntry, error) {
	if _, err := model.ParseMonth(month); err != nil || maxSlots < 0 {
		return nil, domain.ErrInvalidArgument
	}
	e, ok := s.entries[month]
	if !ok {
		e = &model.CapacityEntry{Month: month, MaxSlots: maxSlots, UpdatedAt: time.Now()}
		s.entries[month] = e
	}
	return e, nil
}

func (s *CapacityStore) GetOrInit(_ context.Context, _ repository.Tx, month string, maxSlots int) (*model.CapacityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(month, maxSlots)
	if err != nil {
		return nil, err
	}
	c := *e
	return &c, nil
}

func (s *CapacityStore) TryReserve(_ context.Context, _ repository.Tx, month string, maxSlots int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(month, maxSlots)
	if err != nil {
		return false, err
	}
	if e.UsedSlots >= e.MaxSlots {
		return false, nil
	}
	e.UsedSlots++
	e.UpdatedAt = time.Now()
	return true, nil
}

func (s *CapacityStore) Reset(_ context.Context, _ repository.Tx, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[month]
	if !ok {
		return domain.ErrNotFound
	}
	e.UsedSlots = 0
	e.UpdatedAt = time.Now()
	return nil
}
