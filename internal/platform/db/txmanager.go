package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager hands transaction scopes to domain services without exposing the
// pool itself. Services depend on a local interface satisfied by this type so
// tests can substitute a pass-through.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, m.pool, fn)
}
