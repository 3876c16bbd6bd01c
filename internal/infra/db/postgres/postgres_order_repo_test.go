//go:build integration

package postgres

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

func newTestOrder(t *testing.T) *model.Order {
	t.Helper()
	items := []model.LineItem{{ProductID: "course-1", Title: "Strength Basics", Price: 4999, DurationMonths: 3, ProductType: model.ProductTypeCourse}}
	o, err := model.NewOrder(model.Buyer{Name: "Asha", Email: "asha@example.com", Phone: "9876543210"}, items, "2024-06", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to build order: %v", err)
	}
	return o
}

func TestOrderRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewOrderRepo(testPool)

	t.Run("should create and find by id and gateway ref", func(t *testing.T) {
		cleanup(t)
		o := newTestOrder(t)
		if err := repo.Create(ctx, nil, o); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		byID, err := repo.FindByID(ctx, nil, o.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if byID.OrderRef != o.OrderRef || byID.Status != model.OrderStatusPending || len(byID.Items) != 1 {
			t.Errorf("unexpected order: %+v", byID)
		}

		byRef, err := repo.FindByGatewayRef(ctx, nil, o.OrderRef)
		if err != nil || byRef.ID != o.ID {
			t.Fatalf("FindByGatewayRef failed: %v", err)
		}

		if _, err := repo.FindByGatewayRef(ctx, nil, "ord_missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate order ref is rejected", func(t *testing.T) {
		cleanup(t)
		o := newTestOrder(t)
		if err := repo.Create(ctx, nil, o); err != nil {
			t.Fatal(err)
		}
		dup := newTestOrder(t)
		dup.OrderRef = o.OrderRef
		if err := repo.Create(ctx, nil, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("MarkPaid transitions exactly once under concurrency", func(t *testing.T) {
		cleanup(t)
		o := newTestOrder(t)
		if err := repo.Create(ctx, nil, o); err != nil {
			t.Fatal(err)
		}

		const n = 10
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ref := "cf_pay_1"
				ok, err := repo.MarkPaid(ctx, nil, o.ID, &ref, time.Now())
				if err != nil {
					t.Errorf("MarkPaid failed: %v", err)
					return
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if wins != 1 {
			t.Fatalf("expected exactly one transition, got %d", wins)
		}
		got, _ := repo.FindByID(ctx, nil, o.ID)
		if got.Status != model.OrderStatusPaid || got.PaymentRef == nil || *got.PaymentRef != "cf_pay_1" || got.PaidAt == nil {
			t.Errorf("unexpected order after MarkPaid: %+v", got)
		}

		if ok, _ := repo.MarkFailed(ctx, nil, o.ID); ok {
			t.Error("a paid order must not move to FAILED")
		}
	})

	t.Run("stats and listing", func(t *testing.T) {
		cleanup(t)
		paid := newTestOrder(t)
		pending := newTestOrder(t)
		pending.CreatedAt = time.Now().Add(-time.Hour)
		for _, o := range []*model.Order{paid, pending} {
			if err := repo.Create(ctx, nil, o); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := repo.MarkPaid(ctx, nil, paid.ID, nil, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := repo.FlagCapacityOversold(ctx, nil, paid.ID); err != nil {
			t.Fatal(err)
		}

		counts, err := repo.CountByStatus(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if counts[model.OrderStatusPaid] != 1 || counts[model.OrderStatusPending] != 1 {
			t.Errorf("unexpected counts: %v", counts)
		}

		sum, err := repo.SumPaidSince(ctx, nil, time.Now().Add(-24*time.Hour))
		if err != nil || sum != paid.Amount {
			t.Errorf("expected revenue %d, got %d (%v)", paid.Amount, sum, err)
		}

		stale, err := repo.ListPendingOlderThan(ctx, nil, time.Now().Add(-30*time.Minute), 10)
		if err != nil || len(stale) != 1 || stale[0].ID != pending.ID {
			t.Errorf("expected the stale pending order, got %v (%v)", stale, err)
		}

		list, err := repo.List(ctx, nil, repository.OrderFilter{Status: model.OrderStatusPaid})
		if err != nil || len(list) != 1 || !list[0].CapacityOversold {
			t.Errorf("expected one flagged paid order, got %v (%v)", list, err)
		}
	})
}
