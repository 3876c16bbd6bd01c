//go:build !integration

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

func testOrder(t *testing.T, created time.Time) *model.Order {
	t.Helper()
	items := []model.LineItem{{ProductID: "ebook-1", Title: "Meal Prep Guide", Price: 499, ProductType: model.ProductTypeEbook}}
	o, err := model.NewOrder(model.Buyer{Name: "Ravi", Email: "ravi@example.com", Phone: "+91 98765 43210"}, items, "2024-06", created)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestCapacityStore_TryReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("25 concurrent reservations against 20 slots grant exactly 20", func(t *testing.T) {
		s := NewCapacityStore()
		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.TryReserve(ctx, nil, "2024-06", 20)
				if err != nil {
					t.Errorf("TryReserve failed: %v", err)
					return
				}
				if ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if granted != 20 {
			t.Fatalf("expected 20 grants, got %d", granted)
		}
		e, _ := s.GetOrInit(ctx, nil, "2024-06", 20)
		if e.UsedSlots != 20 || !e.IsFull() {
			t.Errorf("expected a full month, got %+v", e)
		}
	})

	t.Run("months are independent", func(t *testing.T) {
		s := NewCapacityStore()
		if ok, _ := s.TryReserve(ctx, nil, "2024-06", 1); !ok {
			t.Fatal("expected June reservation")
		}
		if ok, _ := s.TryReserve(ctx, nil, "2024-07", 1); !ok {
			t.Fatal("expected July reservation despite June being full")
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		s := NewCapacityStore()
		if _, err := s.TryReserve(ctx, nil, "June", 20); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("reset", func(t *testing.T) {
		s := NewCapacityStore()
		if err := s.Reset(ctx, nil, "2024-06"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for an unknown month, got %v", err)
		}
		_, _ = s.TryReserve(ctx, nil, "2024-06", 1)
		if err := s.Reset(ctx, nil, "2024-06"); err != nil {
			t.Fatal(err)
		}
		e, _ := s.GetOrInit(ctx, nil, "2024-06", 1)
		if e.UsedSlots != 0 {
			t.Errorf("expected usage cleared, got %d", e.UsedSlots)
		}
	})
}

func TestOrderStore(t *testing.T) {
	ctx := context.Background()

	t.Run("MarkPaid is a compare-and-set", func(t *testing.T) {
		s := NewOrderStore()
		o := testOrder(t, time.Now())
		if err := s.Create(ctx, nil, o); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ref := "cf_1"
				if ok, _ := s.MarkPaid(ctx, nil, o.ID, &ref, time.Now()); ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Fatalf("expected one winner, got %d", wins)
		}
		if ok, _ := s.MarkFailed(ctx, nil, o.ID); ok {
			t.Error("PAID must be terminal")
		}
	})

	t.Run("returned orders are copies", func(t *testing.T) {
		s := NewOrderStore()
		o := testOrder(t, time.Now())
		_ = s.Create(ctx, nil, o)
		got, _ := s.FindByGatewayRef(ctx, nil, o.OrderRef)
		got.Status = model.OrderStatusPaid
		again, _ := s.FindByID(ctx, nil, o.ID)
		if again.Status != model.OrderStatusPending {
			t.Error("mutating a returned order must not change the store")
		}
	})

	t.Run("duplicate ref", func(t *testing.T) {
		s := NewOrderStore()
		o := testOrder(t, time.Now())
		_ = s.Create(ctx, nil, o)
		dup := testOrder(t, time.Now())
		dup.OrderRef = o.OrderRef
		if err := s.Create(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("listing and stats", func(t *testing.T) {
		s := NewOrderStore()
		old := testOrder(t, time.Now().Add(-time.Hour))
		fresh := testOrder(t, time.Now())
		_ = s.Create(ctx, nil, old)
		_ = s.Create(ctx, nil, fresh)
		_, _ = s.MarkPaid(ctx, nil, fresh.ID, nil, time.Now())

		stale, _ := s.ListPendingOlderThan(ctx, nil, time.Now().Add(-10*time.Minute), 10)
		if len(stale) != 1 || stale[0].ID != old.ID {
			t.Errorf("expected only the old pending order, got %v", stale)
		}
		counts, _ := s.CountByStatus(ctx, nil)
		if counts[model.OrderStatusPaid] != 1 || counts[model.OrderStatusPending] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
		sum, _ := s.SumPaidSince(ctx, nil, time.Now().Add(-time.Minute))
		if sum != fresh.Amount {
			t.Errorf("expected %d, got %d", fresh.Amount, sum)
		}
		all, _ := s.List(ctx, nil, repository.OrderFilter{Limit: 1})
		if len(all) != 1 || all[0].ID != fresh.ID {
			t.Errorf("expected newest first, got %v", all)
		}
		none, _ := s.List(ctx, nil, repository.OrderFilter{Offset: 5})
		if len(none) != 0 {
			t.Errorf("expected empty page, got %d", len(none))
		}
	})
}

func TestProductStore(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(
		&model.Product{ID: "b", Title: "Course", Type: model.ProductTypeCourse, Price: 100, Durations: map[int]int64{1: 100}, Active: true},
		&model.Product{ID: "a", Title: "Old", Type: model.ProductTypeEbook, Price: 10, Active: false},
	)
	list, _ := s.ListActive(ctx, nil)
	if len(list) != 1 || list[0].ID != "b" {
		t.Fatalf("expected only active products, got %v", list)
	}
	if _, err := s.FindByID(ctx, nil, "zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
