package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/calmzest/waterdash/internal/domain"
)

// DefaultCacheTTL is how long read results are served from cache when no
// explicit TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// Filter narrows a ledger query. Zero values mean "no constraint"; the date
// range is inclusive on both ends.
type Filter struct {
	Type     domain.TransactionType
	Category string
	Start    *civil.Date
	End      *civil.Date
}

func (f Filter) matches(t domain.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Start != nil && t.Date.Before(*f.Start) {
		return false
	}
	if f.End != nil && t.Date.After(*f.End) {
		return false
	}
	return true
}

func (f Filter) key(store domain.Store) string {
	start, end := "", ""
	if f.Start != nil {
		start = f.Start.String()
	}
	if f.End != nil {
		end = f.End.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", store, f.Type, f.Category, start, end)
}

// MatchKey identifies records for update and delete. Type is required for
// updates; for deletes an empty Type matches records of either type.
type MatchKey struct {
	Date civil.Date
	Type domain.TransactionType
}

// Backend is the physical row store behind the adapter: one partition per
// store with columns {ID, Date, Type, Amount, Description, Category}.
// Implementations lazily provision an empty partition (with schema) for a
// store on first access.
type Backend interface {
	// Rows returns every record in the store's partition, in backend order.
	Rows(ctx context.Context, store domain.Store) ([]domain.Transaction, error)

	// Append adds a new record to the store's partition.
	Append(ctx context.Context, store domain.Store, rec domain.Transaction) error

	// UpdateAmount sets the amount of the first record matching key and
	// returns the updated record, or ErrNotFound on zero matches.
	UpdateAmount(ctx context.Context, store domain.Store, key MatchKey, amount float64) (domain.Transaction, error)

	// Delete removes every record matching key and returns the count
	// deleted, or ErrNotFound on zero matches.
	Delete(ctx context.Context, store domain.Store, key MatchKey) (int, error)
}

// Service is the Ledger Store Adapter: it fronts a Backend with filtered
// reads and a short-lived read cache. The cache is the only shared mutable
// state in the core; writes do not invalidate it.
type Service struct {
	backend Backend
	cache   *readCache
	log     zerolog.Logger
}

// NewService creates an adapter over backend with the given read-cache TTL.
func NewService(backend Backend, ttl time.Duration, log zerolog.Logger) *Service {
	return NewServiceWithClock(backend, ttl, time.Now, log)
}

// NewServiceWithClock is NewService with an injected clock, for
// deterministic cache-expiry tests.
func NewServiceWithClock(backend Backend, ttl time.Duration, now func() time.Time, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		backend: backend,
		cache:   newReadCache(ttl, now),
		log:     log,
	}
}

// Append persists a new transaction row.
func (s *Service) Append(ctx context.Context, store domain.Store, rec domain.Transaction) error {
	if err := s.backend.Append(ctx, store, rec); err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	s.log.Debug().
		Str("store", string(store)).
		Str("transaction_id", rec.ID).
		Str("type", string(rec.Type)).
		Float64("amount", rec.Amount).
		Msg("Appended ledger row")
	return nil
}

// Query returns the store's transactions matching filter. Results may be
// served from the read cache within its TTL window; ordering follows the
// backend and must not be assumed sorted.
func (s *Service) Query(ctx context.Context, store domain.Store, filter Filter) ([]domain.Transaction, error) {
	key := filter.key(store)
	if rows, ok := s.cache.get(key); ok {
		return rows, nil
	}

	all, err := s.backend.Rows(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("ledger query: %w", err)
	}

	rows := make([]domain.Transaction, 0, len(all))
	for _, t := range all {
		if filter.matches(t) {
			rows = append(rows, t)
		}
	}

	s.cache.put(key, rows)
	return rows, nil
}

// Update sets the amount of the first record matching key. Which record is
// "first" when several share the same date and type is backend order; the
// tie-break is deliberately undefined.
func (s *Service) Update(ctx context.Context, store domain.Store, key MatchKey, amount float64) (domain.Transaction, error) {
	updated, err := s.backend.UpdateAmount(ctx, store, key, amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("ledger update: %w", err)
	}
	s.log.Debug().
		Str("store", string(store)).
		Str("date", key.Date.String()).
		Float64("amount", amount).
		Msg("Updated ledger row")
	return updated, nil
}

// Delete removes every record matching key and returns the count deleted.
func (s *Service) Delete(ctx context.Context, store domain.Store, key MatchKey) (int, error) {
	n, err := s.backend.Delete(ctx, store, key)
	if err != nil {
		return 0, fmt.Errorf("ledger delete: %w", err)
	}
	s.log.Debug().
		Str("store", string(store)).
		Str("date", key.Date.String()).
		Int("deleted", n).
		Msg("Deleted ledger rows")
	return n, nil
}
