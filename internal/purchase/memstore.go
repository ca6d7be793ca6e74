package purchase

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local tooling.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Purchase
	// FailInsert, when set, is returned by Insert without storing anything.
	FailInsert error
	// FailUpdate, when set, is returned by Update for the given purchase ids.
	FailUpdate map[string]error
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Purchase)}
}

func clone(p Purchase) Purchase {
	p.Items = slices.Clone(p.Items)
	p.Installments = slices.Clone(p.Installments)
	return p
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, p *Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailInsert != nil {
		return m.FailInsert
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Version = 1
	m.rows[p.ID] = clone(*p)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

// ListByUser implements Store.
func (m *MemoryStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]Purchase, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Purchase
	for _, p := range m.rows {
		if p.UserID == userID && p.Active {
			all = append(all, clone(p))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []Purchase{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// ListOpen implements Store.
func (m *MemoryStore) ListOpen(_ context.Context, afterID string, limit int) ([]Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []Purchase
	for _, p := range m.rows {
		if p.Active && p.Invoice.Financed && !p.Invoice.Paid && p.ID > afterID {
			open = append(open, clone(p))
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, p *Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpdate[p.ID]; err != nil {
		return err
	}
	cur, ok := m.rows[p.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != p.Version {
		return ErrConflict
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	m.rows[p.ID] = clone(*p)
	return nil
}

// Len reports how many purchases are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
