package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"flight_tracker/internal/logger"
)

// Geocoder looks up a free-text place query. ok is false when the service
// had no match; err is set only for failed calls.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (c Coordinate, ok bool, err error)
}

// queryVariants are tried in order until one returns a match.
var queryVariants = []string{
	"%s airport",
	"%s international airport",
	"%s airfield",
	"%s",
}

// Cache resolves IATA airport codes. Hits never reach the Geocoder; every new
// match is written to the cache file before Resolve returns.
// Concurrent Resolve calls are serialised.
type Cache struct {
	mu      sync.Mutex
	path    string
	seed    map[string]Coordinate
	entries map[string]Coordinate
	geo     Geocoder
	log     *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithSeed replaces the default seed table.
func WithSeed(seed map[string]Coordinate) Option {
	return func(c *Cache) { c.seed = seed }
}

// WithLogger sets the logger used for lookup and persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache loads the cache file at path (if any) and overlays a copy of the
// seed table. An unreadable file is logged and ignored.
func NewCache(path string, geo Geocoder, opts ...Option) *Cache {
	c := &Cache{
		path: path,
		seed: Seed,
		geo:  geo,
		log:  logger.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.seed = maps.Clone(c.seed)
	c.entries = c.load()
	return c
}

func (c *Cache) load() map[string]Coordinate {
	entries := make(map[string]Coordinate, len(c.seed))

	if c.path != "" {
		data, err := os.ReadFile(c.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			c.log.Warn("could not load coordinates cache", "path", c.path, "error", err)
		default:
			var persisted map[string]Coordinate
			if err := json.Unmarshal(data, &persisted); err != nil {
				c.log.Warn("could not load coordinates cache", "path", c.path, "error", err)
			} else {
				for k, v := range persisted {
					entries[k] = v
				}
			}
		}
	}

	for k, v := range c.seed {
		entries[k] = v
	}
	return entries
}

// Save writes the entries that are not in the seed table, or differ from it.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

func (c *Cache) save() error {
	if c.path == "" {
		return nil
	}

	discovered := make(map[string]Coordinate)
	for k, v := range c.entries {
		if s, ok := c.seed[k]; !ok || s != v {
			discovered[k] = v
		}
	}

	data, err := json.MarshalIndent(discovered, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal coordinates: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".coords-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write coordinates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close coordinates: %w", err)
	}
	return os.Rename(tmp.Name(), c.path)
}

// Lookup returns a cached coordinate without touching the Geocoder.
func (c *Cache) Lookup(code string) (Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[strings.ToUpper(code)]
	return v, ok
}

// Len returns the number of cached entries, seed included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resolve returns the coordinate for a 3-letter airport code.
//
// On a miss each query variant is tried in order through the Geocoder and the
// first match is cached and saved. When nothing matches the miss is not
// remembered, so a later call tries again.
func (c *Cache) Resolve(ctx context.Context, code string) (Coordinate, bool) {
	if code == "" || utf8.RuneCountInString(code) != 3 {
		return Coordinate{}, false
	}
	code = strings.ToUpper(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[code]; ok {
		return v, true
	}
	if c.geo == nil {
		return Coordinate{}, false
	}

	for _, variant := range queryVariants {
		if ctx.Err() != nil {
			break
		}
		query := fmt.Sprintf(variant, code)
		coord, ok, err := c.geo.Geocode(ctx, query)
		if err != nil {
			c.log.Warn("geocoding error", "code", code, "query", query, "error", err)
			continue
		}
		if !ok {
			continue
		}

		c.entries[code] = coord
		if err := c.save(); err != nil {
			c.log.Warn("could not save coordinates cache", "path", c.path, "error", err)
		}
		c.log.Info("found coordinates", "code", code, "lat", coord.Lat, "lon", coord.Lon)
		return coord, true
	}

	c.log.Warn("could not find coordinates for airport", "code", code)
	return Coordinate{}, false
}
