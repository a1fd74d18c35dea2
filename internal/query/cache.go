// Package query caches backend reads by key, shares in-flight loads between
// observers and lets writes mark dependent keys stale.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"steelpos/internal/metrics"

	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"
	"go.uber.org/zap"
)

type entry struct {
	key       Key
	data      any
	hasData   bool
	updatedAt time.Time
	stale     bool
	gen       uint64
}

// observer is an attached Query that wants to hear about invalidation and
// focus events for its current key.
type observer interface {
	currentKey() (Key, bool)
	invalidated()
	focused()
}

type Cache struct {
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu        sync.Mutex
	entries   map[string]*entry
	observers map[observer]struct{}
	group     singleflight.Group
}

func NewCache(clk clock.Clock, m *metrics.Metrics, logger *zap.Logger) *Cache {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		clock:     clk,
		metrics:   m,
		logger:    logger.Named("query"),
		entries:   map[string]*entry{},
		observers: map[observer]struct{}{},
	}
}

// Fetch returns cached data for key when it is younger than staleTime and
// not invalidated. Otherwise it runs load, sharing one call between
// concurrent callers of the same key. A failed load leaves the entry as it
// was.
func (c *Cache) Fetch(ctx context.Context, key Key, staleTime time.Duration, load func(context.Context) (any, error)) (any, time.Time, error) {
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	if ok && e.hasData && !e.stale && c.clock.Now().Sub(e.updatedAt) < staleTime {
		data, at := e.data, e.updatedAt
		c.mu.Unlock()
		c.metrics.ObserveLookup(metrics.CacheHit)
		return data, at, nil
	}
	if !ok {
		e = &entry{key: key}
		c.entries[id] = e
	}
	gen := e.gen
	c.mu.Unlock()

	// Loads started before an invalidation never share with later ones.
	flight := fmt.Sprintf("%s#%d", id, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		data, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return c.store(id, key, gen, data), nil
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.ObserveLookup(metrics.CacheShared)
		} else {
			c.metrics.ObserveLookup(metrics.CacheMiss)
		}
		if res.Err != nil {
			return nil, time.Time{}, res.Err
		}
		stored := res.Val.(stored)
		return stored.data, stored.at, nil
	}
}

type stored struct {
	data any
	at   time.Time
}

func (c *Cache) store(id string, key Key, gen uint64, data any) stored {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e, ok := c.entries[id]
	if !ok {
		// Removed while loading; the caller still gets its data.
		return stored{data: data, at: now}
	}
	e.key = key
	e.data = data
	e.hasData = true
	e.updatedAt = now
	// An invalidation during the load keeps the entry stale.
	e.stale = e.gen != gen
	return stored{data: data, at: now}
}

// Peek returns the cached data for key without loading.
func (c *Cache) Peek(key Key) (any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, time.Time{}, false
	}
	return e.data, e.updatedAt, true
}

// IsStale reports whether the next read of key would load.
func (c *Cache) IsStale(key Key, staleTime time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData || e.stale {
		return true
	}
	return c.clock.Now().Sub(e.updatedAt) >= staleTime
}

// Invalidate marks every entry whose key starts with one of prefixes as
// stale and asks attached observers of those keys to reload. It returns the
// number of entries marked.
func (c *Cache) Invalidate(prefixes ...Key) int {
	c.mu.Lock()
	marked := 0
	for _, e := range c.entries {
		if matchesAny(e.key, prefixes) {
			e.stale = true
			e.gen++
			marked++
		}
	}
	attached := c.attached()
	c.mu.Unlock()

	targets := attached[:0]
	for _, o := range attached {
		if key, ok := o.currentKey(); ok && matchesAny(key, prefixes) {
			targets = append(targets, o)
		}
	}

	c.metrics.ObserveInvalidated(marked)
	c.logger.Debug("invalidated", zap.Int("entries", marked), zap.Int("observers", len(targets)))
	for _, o := range targets {
		o.invalidated()
	}
	return marked
}

// Remove drops entries under the given prefixes without notifying anyone.
func (c *Cache) Remove(prefixes ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if matchesAny(e.key, prefixes) {
			delete(c.entries, id)
		}
	}
}

// Clear drops every entry. Used on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*entry{}
}

// NotifyFocus tells observers that opted into focus refetching to reload.
func (c *Cache) NotifyFocus() {
	c.mu.Lock()
	targets := c.attached()
	c.mu.Unlock()

	for _, o := range targets {
		o.focused()
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) attach(o observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[o] = struct{}{}
}

func (c *Cache) detach(o observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, o)
}

// attached must be called with c.mu held. Observers are consulted only
// after c.mu is released since they take their own locks.
func (c *Cache) attached() []observer {
	out := make([]observer, 0, len(c.observers))
	for o := range c.observers {
		out = append(out, o)
	}
	return out
}

func matchesAny(key Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if key.HasPrefix(p) {
			return true
		}
	}
	return false
}
