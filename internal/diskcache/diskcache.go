// Package diskcache stores JSON blobs on disk with age-based staleness,
// keyed by provider slug and a logical file name.
//
// There is no locking: callers must not run two loads for the same provider
// slug concurrently. The reload orchestration enforces that precondition with
// a per-slug single-flight group.
package diskcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// DefaultTTL is how long a cached blob counts as fresh.
const DefaultTTL = 8 * time.Hour

// Cache reads and writes blobs under a single directory.
type Cache struct {
	dir string
	ttl time.Duration
}

// New returns a cache rooted at dir. A non-positive ttl falls back to
// DefaultTTL.
func New(dir string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{dir: dir, ttl: ttl}
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(slug, name string) string {
	return filepath.Join(c.dir, slug+"-"+name)
}

// Load returns the cached blob for (slug, name), or ok=false when the file
// does not exist, is older than the staleness threshold, or its content does
// not decode to a non-empty JSON structure. A corrupt file is the same as a
// miss: the caller re-fetches and overwrites it.
func (c *Cache) Load(slug, name string) ([]byte, bool) {
	full := c.path(slug, name)
	fi, err := os.Stat(full)
	if err != nil {
		return nil, false
	}
	if time.Since(fi.ModTime()) > c.ttl {
		return nil, false
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, false
	}
	if emptyJSON(data) {
		return nil, false
	}
	return data, true
}

// Save writes the blob for (slug, name), overwriting unconditionally. The
// write is atomic so a concurrent reader never sees a torn file.
func (c *Cache) Save(slug, name string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := renameio.WriteFile(c.path(slug, name), data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// emptyJSON reports whether data fails to parse as JSON or decodes to an
// empty structure (null, empty array/object/string).
func emptyJSON(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return true
	}
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
