package repository

import (
	"context"

	"coach-storefront/internal/domain/model"
)

// -----------------------------
// Capacity ledger
// -----------------------------

type CapacityRepository interface {
	// GetOrInit returns the month's entry, creating it with maxSlots and used=0 if absent.
	GetOrInit(ctx context.Context, tx Tx, month string, maxSlots int) (*model.CapacityEntry, error)
	// TryReserve increments used slots only while below the cap, in one indivisible
	// storage operation. false means the month is sold out.
	TryReserve(ctx context.Context, tx Tx, month string, maxSlots int) (bool, error)
	Reset(ctx context.Context, tx Tx, month string) error
}

// -----------------------------
// Products (read-only catalog)
// -----------------------------

type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Product, error)
}

// ProductSeeder is implemented by stores that can load catalog fixtures.
type ProductSeeder interface {
	Upsert(ctx context.Context, tx Tx, p *model.Product) error
}
