package cache

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
	"github.com/angelmondragon/assetinventory-backend/pkg/metrics"
	"github.com/angelmondragon/assetinventory-backend/pkg/redis"
)

const (
	defaultTTL           = time.Hour
	defaultScanCount     = 100
	defaultMaxScanRounds = 200
	invalidateTimeout    = 5 * time.Second
)

// Store is the subset of the redis client the cache layer needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
	Del(ctx context.Context, keys ...string) error
}

// Emptier lets result types decide whether they are worth caching.
type Emptier interface {
	IsEmpty() bool
}

// ComputeFn loads a value from the source of truth.
type ComputeFn[T any] func(ctx context.Context) (T, error)

// Cache is a read-through cache in front of the relational store. Backend
// failures never reach callers: reads fall back to compute and invalidation
// is skipped with a warning.
type Cache struct {
	store   Store
	cfg     config.CacheConfig
	logg    *logger.Logger
	metrics *metrics.CacheMetrics
}

// New builds a Cache. A nil store behaves like a disabled cache.
func New(store Store, cfg config.CacheConfig, logg *logger.Logger, m *metrics.CacheMetrics) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = defaultScanCount
	}
	if cfg.MaxScanIterations <= 0 {
		cfg.MaxScanIterations = defaultMaxScanRounds
	}
	return &Cache{store: store, cfg: cfg, logg: logg, metrics: m}
}

// Enabled reports whether lookups will touch the backend at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.cfg.Enabled && c.store != nil && !isNilStore(c.store)
}

// GetOrPopulate returns the cached value under key, or calls compute and
// caches a non-empty result for ttl (the configured default when ttl <= 0).
// compute errors are returned unchanged and never cached.
func GetOrPopulate[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute ComputeFn[T]) (T, error) {
	entity := entityOf(key)
	if !c.Enabled() {
		c.countLookup(entity, metrics.OutcomeBypass)
		return compute(ctx)
	}

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		if decodeErr := json.Unmarshal([]byte(raw), &cached); decodeErr == nil {
			c.countLookup(entity, metrics.OutcomeHit)
			return cached, nil
		}
		c.warn(ctx, "cache.decode_failed", key, nil)
	case redis.IsMiss(err):
	default:
		c.metrics.IncError("get")
		c.countLookup(entity, metrics.OutcomeBypass)
		c.warn(ctx, "cache.get_failed", key, err)
		return compute(ctx)
	}

	c.countLookup(entity, metrics.OutcomeMiss)
	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	if isEmpty(value) {
		return value, nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "cache.encode_failed", key, err)
		return value, nil
	}
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		c.metrics.IncError("set")
		c.warn(ctx, "cache.set_failed", key, err)
	}
	return value, nil
}

// InvalidateByPattern deletes every key matching the glob pattern in one DEL.
// The scan is capped at the configured number of iterations. Failures are logged
// and swallowed so the triggering write still succeeds.
func (c *Cache) InvalidateByPattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}

	// Invalidation runs after a commit; a caller hanging up must not leave stale entries behind.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	var (
		cursor uint64
		keys   []string
		seen   = map[string]struct{}{}
	)
	for round := 0; ; round++ {
		if round >= c.cfg.MaxScanIterations {
			c.warn(ctx, "cache.scan_limit_reached", pattern, nil)
			break
		}
		page, next, err := c.store.Scan(ctx, cursor, pattern, c.cfg.ScanCount)
		if err != nil {
			c.metrics.IncError("scan")
			c.warn(ctx, "cache.invalidate_skipped", pattern, err)
			return
		}
		for _, k := range page {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.metrics.IncError("del")
		c.warn(ctx, "cache.invalidate_failed", pattern, err)
		return
	}
	c.metrics.AddInvalidated(pattern, len(keys))
	if c.logg != nil {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"pattern": pattern, "keys": len(keys)}), "cache.invalidated")
	}
}

// Invalidate clears each entity's keys.
func (c *Cache) Invalidate(ctx context.Context, entities ...string) {
	for _, entity := range entities {
		c.InvalidateByPattern(ctx, Pattern(entity))
	}
}

func (c *Cache) countLookup(entity, outcome string) {
	if c == nil {
		return
	}
	c.metrics.IncLookup(entity, outcome)
}

func (c *Cache) warn(ctx context.Context, msg, key string, err error) {
	if c == nil || c.logg == nil {
		return
	}
	fields := map[string]any{"cache_key": key}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.logg.Warn(c.logg.WithFields(ctx, fields), msg)
}

func entityOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if e, ok := v.(Emptier); ok {
		return e.IsEmpty()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		if e, ok := rv.Elem().Interface().(Emptier); ok {
			return e.IsEmpty()
		}
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func isNilStore(s Store) bool {
	rv := reflect.ValueOf(s)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
