//go:build !integration

package seed

import (
	"context"
	"testing"
	"time"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/infra/db/memory"
	"coach-storefront/internal/infra/logging"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProductStore()
	products := Products(time.Now())

	if err := Load(ctx, memory.TxManager{}, store, products, logging.Nop()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// idempotent
	if err := Load(ctx, memory.TxManager{}, store, products, logging.Nop()); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	active, err := store.ListActive(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != len(products) {
		t.Errorf("expected %d products, got %d", len(products), len(active))
	}
	for _, p := range products {
		if p.Type != model.ProductTypeCourse {
			continue
		}
		li, err := p.Snapshot(0)
		if err != nil || li.Price != p.Price {
			t.Errorf("%s: base price must match the shortest duration, got %+v (%v)", p.ID, li, err)
		}
	}
}
