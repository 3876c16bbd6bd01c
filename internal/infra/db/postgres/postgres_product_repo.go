package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var (
	_ repository.ProductRepository = (*productRepo)(nil)
	_ repository.ProductSeeder     = (*productRepo)(nil)
)

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	var typ string
	var durations []byte
	if err := row.Scan(&p.ID, &p.Title, &typ, &p.Price, &durations, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Type = model.ProductType(typ)
	if len(durations) > 0 {
		if err := json.Unmarshal(durations, &p.Durations); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT id, title, type, price, durations, active, created_at FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func (r *productRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	const q = `SELECT id, title, type, price, durations, active, created_at FROM products WHERE active ORDER BY type, title;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if p.IsZero() || p.Title == "" {
		return domain.ErrInvalidArgument
	}
	durations, err := json.Marshal(p.Durations)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO products (id, title, type, price, durations, active, created_at)
VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  title=$2, type=$3, price=$4, durations=$5::jsonb, active=$6;`
	_, err = execSQL(ctx, r.pool, tx, q, p.ID, p.Title, string(p.Type), p.Price, string(durations), p.Active, p.CreatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}
