// Package seed loads the starter catalog into any product store.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

// Products is the starter catalog: two coaching programs and two ebooks.
func Products(now time.Time) []*model.Product {
	return []*model.Product{
		{
			ID: "course-recomp", Title: "Body Recomposition Coaching", Type: model.ProductTypeCourse, Price: 5800,
			Durations: map[int]int64{3: 5800, 6: 9800, 12: 17500}, Active: true, CreatedAt: now,
		},
		{
			ID: "course-strength", Title: "Strength Foundations Coaching", Type: model.ProductTypeCourse, Price: 4500,
			Durations: map[int]int64{3: 4500, 6: 7900}, Active: true, CreatedAt: now,
		},
		{ID: "ebook-meal-prep", Title: "Indian Meal Prep Playbook", Type: model.ProductTypeEbook, Price: 499, Active: true, CreatedAt: now},
		{ID: "ebook-home-workouts", Title: "No-Equipment Home Workouts", Type: model.ProductTypeEbook, Price: 349, Active: true, CreatedAt: now},
	}
}

// Load upserts products in a single transaction.
func Load(ctx context.Context, tm repository.TransactionManager, store repository.ProductSeeder, products []*model.Product, logger *zerolog.Logger) error {
	return tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, p := range products {
			if err := store.Upsert(ctx, tx, p); err != nil {
				return fmt.Errorf("upsert %s: %w", p.ID, err)
			}
			logger.Info().Str("product_id", p.ID).Str("type", string(p.Type)).Int64("price", p.Price).Msg("product seeded")
		}
		return nil
	})
}
