package geo

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pfrederiksen/theatre-alerts/internal/errs"
	"github.com/pfrederiksen/theatre-alerts/internal/metrics"
	"github.com/pfrederiksen/theatre-alerts/internal/production"
)

type cacheEntry struct {
	coords *production.Coordinates // nil for a confirmed no-match
}

// Cache memoizes a Geocoder by normalized location string. Matches and
// confirmed no-matches are cached; transport errors are not.
type Cache struct {
	next    Geocoder
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps next
func NewCache(next Geocoder, m *metrics.Metrics) *Cache {
	return &Cache{
		next:    next,
		metrics: m,
		entries: make(map[string]cacheEntry),
	}
}

// Geocode returns the cached result for location, asking next on a miss
func (c *Cache) Geocode(ctx context.Context, location string) (*production.Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(location))

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.metrics.ObserveGeocode(metrics.GeocodeCache)
		if entry.coords == nil {
			return nil, &errs.GeocodeError{Location: location}
		}
		cp := *entry.coords
		return &cp, nil
	}

	coords, err := c.next.Geocode(ctx, location)
	if err != nil {
		var ge *errs.GeocodeError
		if errors.As(err, &ge) && ge.Err == nil {
			c.store(key, nil)
		}
		return nil, err
	}

	c.store(key, coords)
	cp := *coords
	return &cp, nil
}

// Len reports how many locations are cached
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) store(key string, coords *production.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{coords: coords}
}
