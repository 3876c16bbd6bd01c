// Package memory holds mutex-guarded repositories used by -dev mode and unit tests.
// Each exported operation is atomic with respect to the others on the same store.
package memory

import (
	"context"

	"github.com/jackc/pgx/v4"

	"coach-storefront/internal/domain/ports/repository"
)

var _ repository.TransactionManager = TxManager{}

// TxManager runs fn without a transaction; the stores serialize internally.
type TxManager struct{}

func (TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}
