package memory

import (
	"context"
	"sort"
	"sync"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var (
	_ repository.ProductRepository = (*ProductStore)(nil)
	_ repository.ProductSeeder     = (*ProductStore)(nil)
)

type ProductStore struct {
	mu       sync.RWMutex
	products map[string]model.Product
}

func NewProductStore(seed ...*model.Product) *ProductStore {
	s := &ProductStore{products: map[string]model.Product{}}
	for _, p := range seed {
		_ = s.Upsert(context.Background(), nil, p)
	}
	return s
}

func (s *ProductStore) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *ProductStore) ListActive(_ context.Context, _ repository.Tx) ([]*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ProductStore) Upsert(_ context.Context, _ repository.Tx, p *model.Product) error {
	if p.IsZero() || p.Title == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Durations = make(map[int]int64, len(p.Durations))
	for k, v := range p.Durations {
		cp.Durations[k] = v
	}
	s.products[p.ID] = cp
	return nil
}
