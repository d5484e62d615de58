package ledger

import (
	"sync"
	"time"

	"github.com/calmzest/waterdash/internal/domain"
)

// readCache is a TTL cache over query results. Entries are immutable
// snapshots keyed by store+filter and expire only by time, never on writes;
// read-after-write inside the TTL window may observe stale rows. Races on
// population are benign: last write to a key wins.
type readCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	rows    []domain.Transaction
	expires time.Time
}

func newReadCache(ttl time.Duration, now func() time.Time) *readCache {
	if now == nil {
		now = time.Now
	}
	return &readCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *readCache) get(key string) ([]domain.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.rows, true
}

func (c *readCache) put(key string, rows []domain.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		rows:    rows,
		expires: c.now().Add(c.ttl),
	}
}
