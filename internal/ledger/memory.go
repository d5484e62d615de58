package ledger

import (
	"context"
	"sync"

	"github.com/calmzest/waterdash/internal/domain"
)

// MemoryBackend is an in-memory Backend used by tests, dry runs and local
// development. Partitions are created lazily on first access, mirroring the
// lazy worksheet provisioning of the spreadsheet backend.
type MemoryBackend struct {
	mu   sync.Mutex
	rows map[domain.Store][]domain.Transaction
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows: make(map[domain.Store][]domain.Transaction),
	}
}

func (m *MemoryBackend) Rows(ctx context.Context, store domain.Store) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(store)
	copied := make([]domain.Transaction, len(m.rows[store]))
	copy(copied, m.rows[store])
	return copied, nil
}

func (m *MemoryBackend) Append(ctx context.Context, store domain.Store, rec domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(store)
	m.rows[store] = append(m.rows[store], rec)
	return nil
}

func (m *MemoryBackend) UpdateAmount(ctx context.Context, store domain.Store, key MatchKey, amount float64) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(store)
	for i, t := range m.rows[store] {
		if t.Date == key.Date && t.Type == key.Type {
			m.rows[store][i].Amount = amount
			return m.rows[store][i], nil
		}
	}
	return domain.Transaction{}, ErrNotFound
}

func (m *MemoryBackend) Delete(ctx context.Context, store domain.Store, key MatchKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureLocked(store)
	kept := m.rows[store][:0]
	deleted := 0
	for _, t := range m.rows[store] {
		if t.Date == key.Date && (key.Type == "" || t.Type == key.Type) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	if deleted == 0 {
		return 0, ErrNotFound
	}
	m.rows[store] = kept
	return deleted, nil
}

func (m *MemoryBackend) ensureLocked(store domain.Store) {
	if _, ok := m.rows[store]; !ok {
		m.rows[store] = []domain.Transaction{}
	}
}

var _ Backend = (*MemoryBackend)(nil)
