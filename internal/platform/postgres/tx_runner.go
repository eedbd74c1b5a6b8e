package postgres

import (
	"context"
	"database/sql"

	"github.com/phrazzld/genforge-api/internal/store"
)

// TxRunner implements store.TxRunner over a *sql.DB by binding the
// generation and analytics stores to one transaction.
type TxRunner struct {
	db          *sql.DB
	generations store.GenerationStore
	analytics   store.AnalyticsStore
}

// NewTxRunner creates a TxRunner. The stores are rebound per transaction via WithTx.
func NewTxRunner(db *sql.DB, generations store.GenerationStore, analytics store.AnalyticsStore) *TxRunner {
	if db == nil {
		panic("db cannot be nil")
	}
	return &TxRunner{db: db, generations: generations, analytics: analytics}
}

var _ store.TxRunner = (*TxRunner)(nil)

// RunInTx implements store.TxRunner.RunInTx
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.TxStores) error) error {
	return store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.TxStores{
			Generations: r.generations.WithTx(tx),
			Analytics:   r.analytics.WithTx(tx),
		})
	})
}
