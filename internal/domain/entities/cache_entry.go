package entities

import "time"

// CacheEntry records when an artifact was last produced and the TTL that was
// in effect at that moment. Staleness is computed at query time; entries are
// never deleted by the pipeline itself.
type CacheEntry struct {
	Key        string    `json:"key"`
	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// Fresh reports whether the entry is still within its TTL at the given time.
func (e CacheEntry) Fresh(now time.Time) bool {
	return now.Sub(e.CreatedAt) < time.Duration(e.TTLSeconds)*time.Second
}
