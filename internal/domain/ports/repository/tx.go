package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager runs a function inside a database transaction, handing
// the tx handle to the callback via the repositories' `qx any` argument.
// Keeps use-case interfaces free of storage types: the concrete handle is
// infra-defined (pgx.Tx for Postgres) and repositories accept nil qx for the
// non-transactional path.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
