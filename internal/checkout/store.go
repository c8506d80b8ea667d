package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

// PgxStore runs checkout transactions on a pgx pool.
type PgxStore struct {
	Pool *pgxpool.Pool
}

// InTx begins a read-committed transaction; the voucher row lock taken during evaluation is what
// serialises competing redemptions.
func (s PgxStore) InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	repos := Repos{
		Catalog:  catalog.Store{DB: tx},
		Vouchers: voucher.Store{DB: tx},
		Orders:   order.Store{DB: tx},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
