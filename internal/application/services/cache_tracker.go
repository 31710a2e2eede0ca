package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

// CacheTracker answers freshness questions for the two artifact kinds and
// records completions. A single TTL applies to all entries; each entry keeps
// the TTL in effect when it was marked.
type CacheTracker struct {
	store  providers.FreshnessStore
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewCacheTracker creates a tracker over the given store.
func NewCacheTracker(store providers.FreshnessStore, ttl time.Duration, logger zerolog.Logger) *CacheTracker {
	return NewCacheTrackerWithClock(store, ttl, logger, time.Now)
}

// NewCacheTrackerWithClock allows overriding the clock (used for tests).
func NewCacheTrackerWithClock(store providers.FreshnessStore, ttl time.Duration, logger zerolog.Logger, now func() time.Time) *CacheTracker {
	return &CacheTracker{store: store, ttl: ttl, logger: logger, now: now}
}

// CandidateListKey derives the cache key for a candidate list build.
func CandidateListKey(location string, distance float64) string {
	return fmt.Sprintf("campground_list_%s_%s", normalizeLocation(location), formatDistance(distance))
}

// AvailabilityKey derives the cache key for a month's availability fetch.
func AvailabilityKey(month string) string {
	return "availability_" + month
}

// IsCandidateListFresh reports whether a candidate list built with these
// parameters is still within its TTL. Absence of an entry means not fresh.
func (t *CacheTracker) IsCandidateListFresh(location string, distance float64) bool {
	return t.isFresh(CandidateListKey(location, distance))
}

// IsAvailabilityFresh reports whether the month's availability data is still
// within its TTL.
func (t *CacheTracker) IsAvailabilityFresh(month string) bool {
	return t.isFresh(AvailabilityKey(month))
}

// MarkCandidateListCached records a completed candidate list build, resetting
// the entry's creation time to now.
func (t *CacheTracker) MarkCandidateListCached(location string, distance float64) error {
	return t.mark(CandidateListKey(location, distance))
}

// MarkAvailabilityCached records a completed availability fetch for the month.
func (t *CacheTracker) MarkAvailabilityCached(month string) error {
	return t.mark(AvailabilityKey(month))
}

// Summary returns a human-readable freshness report for the given parameters.
// The month section is omitted when month is empty.
func (t *CacheTracker) Summary(location string, distance float64, month string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "campground list for %q within %s miles: %s",
		normalizeLocation(location), formatDistance(distance),
		t.describe(CandidateListKey(location, distance)))
	if month != "" {
		fmt.Fprintf(&b, "; availability for %s: %s", month, t.describe(AvailabilityKey(month)))
	}
	return b.String()
}

func (t *CacheTracker) isFresh(key string) bool {
	entry, ok, err := t.store.Get(key)
	if err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("freshness lookup failed, treating as stale")
		return false
	}
	return ok && entry.Fresh(t.now())
}

func (t *CacheTracker) mark(key string) error {
	entry := entities.CacheEntry{
		Key:        key,
		CreatedAt:  t.now(),
		TTLSeconds: int(t.ttl.Seconds()),
	}
	if err := t.store.Put(entry); err != nil {
		return fmt.Errorf("failed to mark %s cached: %w", key, err)
	}
	t.logger.Debug().Str("key", key).Msg("marked cached")
	return nil
}

func (t *CacheTracker) describe(key string) string {
	entry, ok, err := t.store.Get(key)
	if err != nil || !ok {
		return "not cached"
	}
	remaining := time.Duration(entry.TTLSeconds)*time.Second - t.now().Sub(entry.CreatedAt)
	if remaining <= 0 {
		return fmt.Sprintf("stale (cached %s ago)", t.now().Sub(entry.CreatedAt).Round(time.Second))
	}
	return fmt.Sprintf("fresh (expires in %s)", remaining.Round(time.Second))
}

func normalizeLocation(location string) string {
	trimmed := strings.TrimSpace(location)
	return strings.ReplaceAll(strings.ToLower(trimmed), " ", "_")
}

func formatDistance(distance float64) string {
	return strconv.FormatFloat(distance, 'f', -1, 64)
}
