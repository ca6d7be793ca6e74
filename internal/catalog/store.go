package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/pricing"
)

// Product is a sellable catalog entry.
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    pricing.Category `json:"category"`
	Price       decimal.Decimal  `json:"price"`
	UnitTax     decimal.Decimal  `json:"unitTax"`
	Stock       int              `json:"stock"`
	Active      bool             `json:"active"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Store is the product persistence contract used by the catalog service and
// by checkout inside its transaction.
type Store interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore implements Store on Postgres.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *PGStore) WithTx(tx pgx.Tx) *PGStore {
	return &PGStore{db: tx}
}

const productColumns = `id, name, description, category, price, unit_tax, stock, active, created_at, updated_at`

// GetProduct loads a product by id.
func (s *PGStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	pid, err := toUUID(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	p, err := scanProduct(s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, pid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// CreateProduct inserts p, assigning an id when empty.
func (s *PGStore) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	pid, err := toUUID(p.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err = s.db.Exec(ctx, `INSERT INTO products (`+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pid, p.Name, toText(p.Description), string(p.Category), toNumeric(p.Price), toNumeric(p.UnitTax),
		p.Stock, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

// AdjustStock adds delta to the product stock unless that would take it
// below zero or the product is inactive.
func (s *PGStore) AdjustStock(ctx context.Context, id string, delta int) (*Product, error) {
	pid, err := toUUID(id)
	if err != nil {
		return nil, ErrProductNotFound
	}
	p, err := scanProduct(s.db.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = now()
WHERE id = $1 AND active AND stock + $2 >= 0
RETURNING `+productColumns, pid, delta))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetProduct(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	return p, err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p           Product
		id          pgtype.UUID
		description pgtype.Text
		category    string
		price, tax  pgtype.Numeric
	)
	if err := row.Scan(&id, &p.Name, &description, &category, &price, &tax, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = uuidString(id)
	p.Description = textToString(description)
	p.Category = pricing.ParseCategory(category)
	p.Price = fromNumeric(price)
	p.UnitTax = fromNumeric(tax)
	return &p, nil
}

func toUUID(value string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(value); err != nil {
		return pgtype.UUID{}, err
	}
	return id, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}

func toText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

func textToString(value pgtype.Text) string {
	if !value.Valid {
		return ""
	}
	return value.String
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
