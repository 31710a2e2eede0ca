package providers

import "github.com/tjg323/recdotgov/internal/domain/entities"

// FreshnessStore persists cache entries so freshness survives process
// restarts. Implementations never auto-expire entries; staleness is a
// query-time computation by the caller.
type FreshnessStore interface {
	// Get returns the entry for key. ok is false when no entry exists,
	// which is not an error.
	Get(key string) (entry entities.CacheEntry, ok bool, err error)

	// Put creates or replaces the entry for entry.Key.
	Put(entry entities.CacheEntry) error
}
