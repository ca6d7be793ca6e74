package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStoreUnavailable indicates the purchase store is not configured.
var ErrStoreUnavailable = errors.New("purchase: store unavailable")

// Store persists purchase documents. Update is conditional on Version and
// returns ErrConflict when another writer got there first.
type Store interface {
	Insert(ctx context.Context, p *Purchase) error
	Get(ctx context.Context, id string) (*Purchase, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Purchase, int64, error)
	ListOpen(ctx context.Context, afterID string, limit int) ([]Purchase, error)
	Update(ctx context.Context, p *Purchase) error
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore stores purchases in Postgres, one row per aggregate with the
// embedded parts kept as JSONB.
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

const selectColumns = `id, user_id, customer, items, shipping, invoice, installments, active, version, created_at, updated_at`

type document struct {
	customer, items, shipping, invoice, installments []byte
}

func encode(p *Purchase) (document, error) {
	var (
		d   document
		err error
	)
	if d.customer, err = json.Marshal(p.Customer); err != nil {
		return d, err
	}
	if d.items, err = json.Marshal(p.Items); err != nil {
		return d, err
	}
	if d.shipping, err = json.Marshal(p.Shipping); err != nil {
		return d, err
	}
	if d.invoice, err = json.Marshal(p.Invoice); err != nil {
		return d, err
	}
	installments := p.Installments
	if installments == nil {
		installments = []Installment{}
	}
	if d.installments, err = json.Marshal(installments); err != nil {
		return d, err
	}
	return d, nil
}

// Insert creates a new purchase row.
func (s *PGStore) Insert(ctx context.Context, p *Purchase) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("purchase id: %w", err)
	}
	doc, err := encode(p)
	if err != nil {
		return fmt.Errorf("encode purchase: %w", err)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Version = 1
	_, err = s.db.Exec(ctx, `INSERT INTO purchases (id, user_id, customer, items, shipping, invoice, installments, financed, paid, active, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, p.UserID, doc.customer, doc.items, doc.shipping, doc.invoice, doc.installments,
		p.Invoice.Financed, p.Invoice.Paid, p.Active, p.Version, p.CreatedAt, p.UpdatedAt)
	return err
}

// Get loads a purchase by id.
func (s *PGStore) Get(ctx context.Context, id string) (*Purchase, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	p, err := scanPurchase(s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM purchases WHERE id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByUser returns the user's active purchases, newest first.
func (s *PGStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Purchase, int64, error) {
	if s == nil || s.db == nil {
		return nil, 0, ErrStoreUnavailable
	}
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE user_id = $1 AND active`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM purchases WHERE user_id = $1 AND active
ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows, limit)
	return out, total, err
}

// ListOpen pages through active, financed, unpaid purchases ordered by id.
func (s *PGStore) ListOpen(ctx context.Context, afterID string, limit int) ([]Purchase, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	after := uuid.Nil
	if afterID != "" {
		parsed, err := uuid.Parse(afterID)
		if err != nil {
			return nil, fmt.Errorf("cursor: %w", err)
		}
		after = parsed
	}
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM purchases
WHERE active AND financed AND NOT paid AND id > $1 ORDER BY id LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, limit)
}

// Update writes p back if nobody changed it since it was read.
func (s *PGStore) Update(ctx context.Context, p *Purchase) error {
	if s == nil || s.db == nil {
		return ErrStoreUnavailable
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return ErrNotFound
	}
	doc, err := encode(p)
	if err != nil {
		return fmt.Errorf("encode purchase: %w", err)
	}
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `UPDATE purchases
SET invoice = $3, installments = $4, shipping = $5, financed = $6, paid = $7, active = $8, version = version + 1, updated_at = $9
WHERE id = $1 AND version = $2`,
		id, p.Version, doc.invoice, doc.installments, doc.shipping, p.Invoice.Financed, p.Invoice.Paid, p.Active, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func collect(rows pgx.Rows, capacity int) ([]Purchase, error) {
	defer rows.Close()
	out := make([]Purchase, 0, capacity)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPurchase(row pgx.Row) (*Purchase, error) {
	var (
		p   Purchase
		id  uuid.UUID
		doc document
	)
	if err := row.Scan(&id, &p.UserID, &doc.customer, &doc.items, &doc.shipping, &doc.invoice, &doc.installments,
		&p.Active, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.String()
	if err := json.Unmarshal(doc.customer, &p.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(doc.items, &p.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(doc.shipping, &p.Shipping); err != nil {
		return nil, fmt.Errorf("decode shipping: %w", err)
	}
	if err := json.Unmarshal(doc.invoice, &p.Invoice); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if err := json.Unmarshal(doc.installments, &p.Installments); err != nil {
		return nil, fmt.Errorf("decode installments: %w", err)
	}
	return &p, nil
}
