package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and passes the handle as tx.
//
// Repositories accept `tx Tx` on every method and MUST accept nil (non-transactional
// path). The concrete type is infra-defined (pgx.Tx for Postgres); the in-memory stores
// ignore it.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
