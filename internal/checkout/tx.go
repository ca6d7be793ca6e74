package checkout

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/purchase"
)

// Tx is the set of writes checkout performs atomically.
type Tx interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*catalog.Product, error)
	InsertPurchase(ctx context.Context, p *purchase.Purchase) error
}

// Transactor runs fn inside a transaction. Returning an error from fn rolls
// every write back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// PGTransactor implements Transactor with a pgx transaction.
type PGTransactor struct {
	Pool *pgxpool.Pool
}

type pgTx struct {
	*catalog.PGStore
	purchases *purchase.PGStore
}

func (t pgTx) InsertPurchase(ctx context.Context, p *purchase.Purchase) error {
	return t.purchases.Insert(ctx, p)
}

// InTx implements Transactor.
func (t PGTransactor) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := t.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, pgTx{
		PGStore:   catalog.NewPGStore(tx),
		purchases: purchase.NewPGStore(tx),
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
