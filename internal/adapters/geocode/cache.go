package geocode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/okian/aptrank/pkg/metrics"
)

// Cache remembers geocoding results by address. It is an explicit object
// owned by the caller: Load reads the file, Save writes it back.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Point
	dirty   bool
}

// NewCache creates an empty cache backed by path. An empty path keeps the
// cache in memory only.
func NewCache(path string) *Cache {
	return &Cache{path: path, entries: make(map[string]Point)}
}

// Load replaces the contents with the file's. A missing file is not an error.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheLoad, err)
	}

	entries := make(map[string]Point)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheLoad, c.path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
	c.dirty = false
	return nil
}

// Save writes the cache if it changed since the last Load or Save.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" || !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSave, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSave, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrCacheSave, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSave, err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSave, err)
	}
	c.dirty = false
	return nil
}

// Get returns the cached point for address.
func (c *Cache) Get(address string) (Point, bool) {
	c.mu.RLock()
	p, ok := c.entries[normalize(address)]
	c.mu.RUnlock()
	metrics.RecordGeocodeCache(ok)
	return p, ok
}

// Put stores a point for address.
func (c *Cache) Put(address string, p Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[normalize(address)] = p
	c.dirty = true
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func normalize(address string) string {
	return strings.Join(strings.Fields(address), " ")
}
