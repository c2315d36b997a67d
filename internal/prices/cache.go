package prices

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/swapfy/terminal/internal/constants"
)

// Quote is one token's cached USD price.
type Quote struct {
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fresh reports whether the quote is still inside the TTL window at
// instant now.
func (q Quote) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(q.FetchedAt) < ttl
}

// Cache holds USD prices keyed by token address with a fixed TTL.
// Expired entries are never returned to callers; refreshing is the
// Batcher's job. An optional Redis backend persists the map across
// restarts.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Quote

	ttl    time.Duration
	now    func() time.Time
	redis  *redis.Client
	key    string
	logger *logrus.Logger
}

type CacheOption func(*Cache)

// WithRedis persists the cache to a Redis hash under
// "<prefix>prices:usd". Pass the same prefix every storage component
// uses so one instance's keys stay together.
func WithRedis(client *redis.Client, prefix string) CacheOption {
	return func(c *Cache) {
		c.redis = client
		c.key = prefix + constants.RedisKeyPricePrefix + "usd"
	}
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(logger *logrus.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Cache{
		entries: make(map[string]Quote),
		ttl:     constants.PriceCacheTTL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached price for addr, or ok=false when the entry is
// missing or expired. Expired entries are not pruned here; Put
// overwrites them on the next refresh.
func (c *Cache) Get(addr string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.entries[addr]
	if !ok || !q.Fresh(c.now(), c.ttl) {
		return Quote{}, false
	}
	return q, true
}

// GetMany returns fresh entries for the requested addresses. Missing or
// expired addresses are simply absent from the result.
func (c *Cache) GetMany(addrs []string) map[string]Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	out := make(map[string]Quote, len(addrs))
	for _, a := range addrs {
		if q, ok := c.entries[a]; ok && q.Fresh(now, c.ttl) {
			out[a] = q
		}
	}
	return out
}

// Put stores freshly fetched prices, stamping them with the current
// time. Existing entries for the same addresses are replaced.
func (c *Cache) Put(prices map[string]float64) {
	if len(prices) == 0 {
		return
	}
	now := c.now()

	c.mu.Lock()
	for addr, p := range prices {
		c.entries[addr] = Quote{Price: p, FetchedAt: now}
	}
	c.mu.Unlock()
}

// Stale returns the subset of addrs that have no fresh cache entry and
// therefore need a fetch.
func (c *Cache) Stale(addrs []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var out []string
	for _, a := range addrs {
		if q, ok := c.entries[a]; !ok || !q.Fresh(now, c.ttl) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load restores persisted prices from Redis, pruning anything already
// past the TTL. Persisted entries never overwrite a newer in-memory
// entry for the same address. A nil backend makes Load a no-op.
func (c *Cache) Load(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}

	raw, err := c.redis.HGetAll(ctx, c.key).Result()
	if err != nil {
		return err
	}

	now := c.now()
	loaded, pruned := 0, 0

	c.mu.Lock()
	for addr, val := range raw {
		var q Quote
		if err := json.Unmarshal([]byte(val), &q); err != nil {
			pruned++
			continue
		}
		if !q.Fresh(now, c.ttl) {
			pruned++
			continue
		}
		if existing, ok := c.entries[addr]; ok && existing.FetchedAt.After(q.FetchedAt) {
			continue
		}
		c.entries[addr] = q
		loaded++
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"loaded": loaded,
		"pruned": pruned,
	}).Debug("Restored price cache")
	return nil
}

// Persist writes the current fresh entries to Redis in a single
// pipeline, replacing the stored hash. Expired entries are dropped so
// the persisted form never grows unbounded.
func (c *Cache) Persist(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}

	c.mu.RLock()
	now := c.now()
	fields := make(map[string]interface{}, len(c.entries))
	for addr, q := range c.entries {
		if !q.Fresh(now, c.ttl) {
			continue
		}
		data, err := json.Marshal(q)
		if err != nil {
			continue
		}
		fields[addr] = data
	}
	c.mu.RUnlock()

	pipe := c.redis.TxPipeline()
	pipe.Del(ctx, c.key)
	if len(fields) > 0 {
		pipe.HSet(ctx, c.key, fields)
		pipe.Expire(ctx, c.key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
