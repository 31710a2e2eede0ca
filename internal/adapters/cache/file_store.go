package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

// FileStore implements FreshnessStore with one JSON file per entry under a
// configured directory, so freshness state survives process restarts.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if absent.
func NewFileStore(dir string) (providers.FreshnessStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Get returns the entry for key; a missing entry file is not an error.
func (s *FileStore) Get(key string) (entities.CacheEntry, bool, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return entities.CacheEntry{}, false, nil
		}
		return entities.CacheEntry{}, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var entry entities.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry behaves like an absent one; the next Put rewrites it.
		return entities.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put creates or replaces the entry, writing through a temp file and an
// atomic rename.
func (s *FileStore) Put(entry entities.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", entry.Key, err)
	}

	final := s.entryPath(entry.Key)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", entry.Key, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize cache entry %s: %w", entry.Key, err)
	}
	return nil
}

func (s *FileStore) entryPath(key string) string {
	return filepath.Join(s.dir, "cache_"+sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
