package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tableforge-labs/tableforge/pkg/table"
)

// CachingResolver wraps a resolver with a TTL cache. Concurrent requests for
// the same dataset share one underlying load.
type CachingResolver struct {
	inner Resolver
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	t       *table.Table
	expires time.Time
}

// NewCachingResolver caches inner's results for ttl. A non-positive ttl
// disables expiry; entries live until Invalidate.
func NewCachingResolver(inner Resolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]cacheEntry{},
	}
}

func (c *CachingResolver) Resolve(ctx context.Context, name string) (*table.Table, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || c.now().Before(e.expires)) {
		return e.t, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		t, err := c.inner.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[name] = cacheEntry{t: t, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*table.Table), nil
}

func (c *CachingResolver) Names(ctx context.Context) ([]string, error) {
	return c.inner.Names(ctx)
}

// Invalidate drops the named dataset from the cache, or every entry when
// name is empty.
func (c *CachingResolver) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.entries = map[string]cacheEntry{}
		return
	}
	delete(c.entries, name)
}
