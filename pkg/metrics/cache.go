package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache lookup outcomes.
const (
	OutcomeHit    = "hit"
	OutcomeMiss   = "miss"
	OutcomeBypass = "bypass"
)

// CacheMetrics records read-through cache behaviour per entity type.
type CacheMetrics struct {
	lookups     *prometheus.CounterVec
	errors      *prometheus.CounterVec
	invalidated *prometheus.CounterVec
}

// NewCacheMetrics registers the cache metrics on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Read-through cache lookups by entity and outcome.",
	}, []string{"entity", "outcome"})
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_backend_errors_total",
		Help: "Cache backend failures absorbed by the cache layer.",
	}, []string{"op"})
	invalidated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_invalidated_keys_total",
		Help: "Keys removed by pattern invalidation.",
	}, []string{"pattern"})
	reg.MustRegister(lookups, errors, invalidated)
	return &CacheMetrics{
		lookups:     lookups,
		errors:      errors,
		invalidated: invalidated,
	}
}

// IncLookup counts a lookup with the given outcome.
func (c *CacheMetrics) IncLookup(entity, outcome string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(entity), outcome).Inc()
}

// IncError counts a swallowed backend failure for op (get, set, scan, del).
func (c *CacheMetrics) IncError(op string) {
	if c == nil || c.errors == nil {
		return
	}
	c.errors.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddInvalidated adds n removed keys for pattern.
func (c *CacheMetrics) AddInvalidated(pattern string, n int) {
	if c == nil || c.invalidated == nil || n <= 0 {
		return
	}
	c.invalidated.WithLabelValues(normalizeLabel(pattern)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
