package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"coach-storefront/internal/domain"
	"coach-storefront/internal/domain/model"
	"coach-storefront/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, order_ref, buyer_name, buyer_email, buyer_phone, items, amount, currency, capacity_month, status, payment_ref, session_handle, capacity_oversold, created_at, updated_at, paid_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var items []byte
	var status string
	if err := row.Scan(&o.ID, &o.OrderRef, &o.Buyer.Name, &o.Buyer.Email, &o.Buyer.Phone, &items, &o.Amount, &o.Currency,
		&o.CapacityMonth, &status, &o.PaymentRef, &o.SessionHandle, &o.CapacityOversold, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.Status = model.OrderStatus(status)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if o == nil {
		return domain.ErrInvalidArgument
	}
	if err := o.Validate(); err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO orders (
  id, order_ref, buyer_name, buyer_email, buyer_phone, items, amount, currency, capacity_month, status, session_handle, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6::jsonb,$7,$8,$9,'PENDING',$10,$11,$11
);`
	_, err = execSQL(ctx, r.pool, tx, q, o.ID, o.OrderRef, o.Buyer.Name, o.Buyer.Email, o.Buyer.Phone, string(items),
		o.Amount, o.Currency, o.CapacityMonth, o.SessionHandle, o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return mapExecErr(err)
	}
	o.Status = model.OrderStatusPending
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByGatewayRef(ctx context.Context, tx repository.Tx, ref string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_ref=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", ref)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) SetSessionHandle(ctx context.Context, tx repository.Tx, id, handle string) error {
	const q = `UPDATE orders SET session_handle=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, handle)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPaid is the compare-and-set that serializes concurrent reconcilers.
func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paymentRef *string, paidAt time.Time) (bool, error) {
	const q = `
    UPDATE orders
       SET status = 'PAID',
           payment_ref = $2,
           paid_at = $3,
           updated_at = NOW()
     WHERE id = $1
       AND status = 'PENDING'`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentRef, paidAt)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *orderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE orders SET status='FAILED', updated_at=NOW() WHERE id=$1 AND status='PENDING'`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *orderRepo) FlagCapacityOversold(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE orders SET capacity_oversold=TRUE, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE status='PENDING' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.collect(ctx, tx, q, olderThan, limit)
}

func (r *orderRepo) List(ctx context.Context, tx repository.Tx, f repository.OrderFilter) ([]*model.Order, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status != "" {
		const q = `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
		return r.collect(ctx, tx, q, string(f.Status), f.Offset, f.Limit)
	}
	const q = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	return r.collect(ctx, tx, q, f.Offset, f.Limit)
}

func (r *orderRepo) collect(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *orderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM orders GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	out := map[model.OrderStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.OrderStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *orderRepo) SumPaidSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM orders WHERE status='PAID' AND paid_at >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
