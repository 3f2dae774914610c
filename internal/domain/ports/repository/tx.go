package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle created by a TransactionManager. Adapters
// type-assert it back to their driver's handle.
type Tx interface{}

// NoTX asks a repository to run on its pool, outside any transaction.
var NoTX Tx

// TransactionManager runs one ledger unit of work atomically. Every write the
// unit makes goes through the tx it receives; reads through a non-nil tx lock
// the rows they return. A non-nil error from fn rolls the unit back, and the
// manager may replay fn after a transient conflict, so fn must not have side
// effects outside the database.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
