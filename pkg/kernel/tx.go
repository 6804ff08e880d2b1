package kernel

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithTx attaches an in-flight transaction to ctx so that repositories
// further down the call chain participate in it instead of opening their
// own. This is what lets an admin mutation and its AuditLog row commit or
// roll back together without the domain ports themselves depending on
// *sqlx.Tx.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction attached by WithTx, if any.
func TxFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// Transactor runs fn with a transaction (or an equivalent unit of work)
// attached to its context, so that a mutation and the audit row describing
// it commit or roll back together. Handlers depend on this interface rather
// than *TxRunner directly so tests can supply a no-op implementation over
// in-memory fakes that have no *sqlx.DB to begin a transaction against.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxRunner is the PostgreSQL-backed Transactor: it opens a transaction,
// attaches it to ctx, runs fn, and commits or rolls back depending on fn's
// outcome.
type TxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
