// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sidequest/internal/config"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores opaque byte values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error

	// Increment bumps a counter. The ttl is applied when the key is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Stats() Stats
	Health(ctx context.Context) error
	Close() error
}

// Stats represents cache statistics
type Stats struct {
	Provider string  `json:"provider"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Keys     int64   `json:"keys"`
	HitRatio float64 `json:"hit_ratio"`
}

// NewCache builds the cache selected by configuration
func NewCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "memory":
		return NewMemoryCache(cfg.MemorySize, cfg.KeyPrefix, logger)
	case "redis":
		return NewRedisCache(cfg.RedisURL, cfg.KeyPrefix, logger)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// GetJSON decodes a cached JSON value into dst
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON encodes value as JSON and stores it
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryItem struct {
	value     []byte
	counter   int64
	expiresAt time.Time
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// memoryCache is a bounded LRU with per-key expiry
type memoryCache struct {
	mu     sync.Mutex
	items  *lru.Cache
	prefix string
	logger *zap.Logger
	now    func() time.Time

	hits   int64
	misses int64
}

// NewMemoryCache creates an in-process LRU cache holding at most size keys
func NewMemoryCache(size int, prefix string, logger *zap.Logger) (Cache, error) {
	if size <= 0 {
		size = 4096
	}
	items, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	logger.Info("Memory cache initialized", zap.Int("size", size))
	return &memoryCache{
		items:  items,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *memoryCache) lookup(key string) (*memoryItem, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	item := v.(*memoryItem)
	if item.expired(c.now()) {
		c.items.Remove(key)
		return nil, false
	}
	return item, true
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.lookup(c.prefix + key)
	if !ok || item.value == nil {
		c.misses++
		return nil, false
	}
	c.hits++
	return item.value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.items.Add(c.prefix+key, item)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		c.items.Remove(c.prefix + k)
	}
	return nil
}

func (c *memoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.prefix + prefix
	for _, k := range c.items.Keys() {
		if s, ok := k.(string); ok && strings.HasPrefix(s, full) {
			c.items.Remove(s)
		}
	}
	return nil
}

func (c *memoryCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.prefix + key
	item, ok := c.lookup(full)
	if !ok {
		item = &memoryItem{}
		if ttl > 0 {
			item.expiresAt = c.now().Add(ttl)
		}
		c.items.Add(full, item)
	}
	item.counter++
	return item.counter, nil
}

func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Provider: "memory",
		Hits:     c.hits,
		Misses:   c.misses,
		Keys:     int64(c.items.Len()),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatio = float64(c.hits) / float64(total)
	}
	return s
}

func (c *memoryCache) Health(ctx context.Context) error { return nil }

func (c *memoryCache) Close() error {
	c.items.Purge()
	return nil
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewRedisCache connects to redis and verifies the connection
func NewRedisCache(url, prefix string, logger *zap.Logger) (Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &redisCache{client: client, prefix: prefix, logger: logger}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		r.misses++
		return nil, false
	}
	r.hits++
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *redisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *redisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	full := r.prefix + key
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	if ttl > 0 {
		pipe.ExpireNX(ctx, full, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (r *redisCache) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Provider: "redis", Hits: r.hits, Misses: r.misses, Keys: -1}
	if n, err := r.client.DBSize(context.Background()).Result(); err == nil {
		s.Keys = n
	}
	if total := r.hits + r.misses; total > 0 {
		s.HitRatio = float64(r.hits) / float64(total)
	}
	return s
}

func (r *redisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
