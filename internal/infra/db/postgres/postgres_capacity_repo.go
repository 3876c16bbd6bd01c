package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var _ repository.CapacityRepository = (*capacityRepo)(nil)

type capacityRepo struct{ pool *pgxpool.Pool }

func NewCapacityRepo(pool *pgxpool.Pool) *capacityRepo {
	return &capacityRepo{pool: pool}
}

func (r *capacityRepo) ensure(ctx context.Context, tx repository.Tx, month string, maxSlots int) error {
	if _, err := model.ParseMonth(month); err != nil || maxSlots < 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO capacity_ledger (month, max_slots, used_slots, updated_at)
VALUES ($1, $2, 0, NOW())
ON CONFLICT (month) DO NOTHING;`
	if _, err := execSQL(ctx, r.pool, tx, q, month, maxSlots); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *capacityRepo) GetOrInit(ctx context.Context, tx repository.Tx, month string, maxSlots int) (*model.CapacityEntry, error) {
	if err := r.ensure(ctx, tx, month, maxSlots); err != nil {
		return nil, err
	}
	const q = `SELECT month, max_slots, used_slots, updated_at FROM capacity_ledger WHERE month=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, month)
	if err != nil {
		return nil, err
	}
	e := &model.CapacityEntry{}
	if err := row.Scan(&e.Month, &e.MaxSlots, &e.UsedSlots, &e.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

// TryReserve relies on row-level locking of the conditional UPDATE: concurrent callers
// queue on the row and re-check used_slots < max_slots against the committed value.
func (r *capacityRepo) TryReserve(ctx context.Context, tx repository.Tx, month string, maxSlots int) (bool, error) {
	if err := r.ensure(ctx, tx, month, maxSlots); err != nil {
		return false, err
	}
	const q = `
UPDATE capacity_ledger
   SET used_slots = used_slots + 1,
       updated_at = NOW()
 WHERE month = $1
   AND used_slots < max_slots;`
	cmd, err := execSQL(ctx, r.pool, tx, q, month)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *capacityRepo) Reset(ctx context.Context, tx repository.Tx, month string) error {
	if _, err := model.ParseMonth(month); err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `UPDATE capacity_ledger SET used_slots = 0, updated_at = NOW() WHERE month = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, month)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
