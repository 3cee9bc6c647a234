package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCacheMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCacheMetrics(reg)
	m.IncLookup("asset", OutcomeHit)
	m.IncLookup("asset", OutcomeHit)
	m.IncLookup("asset", OutcomeMiss)
	m.IncError("scan")
	m.AddInvalidated("assetAllocation:*", 3)
	m.AddInvalidated("assetAllocation:*", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cache_lookups_total", map[string]string{"entity": "asset", "outcome": OutcomeHit}); err != nil {
		t.Fatalf("fetch hits: %v", err)
	} else if got != 2 {
		t.Fatalf("expected hits=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cache_backend_errors_total", map[string]string{"op": "scan"}); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cache_invalidated_keys_total", map[string]string{"pattern": "assetAllocation:*"}); err != nil {
		t.Fatalf("fetch invalidated: %v", err)
	} else if got != 3 {
		t.Fatalf("expected invalidated=3, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var c *CacheMetrics
	c.IncLookup("asset", OutcomeMiss)
	c.IncError("get")
	c.AddInvalidated("x", 1)

	NewCacheMetrics(nil).IncLookup("asset", OutcomeHit)

	var h *HTTPMetrics
	h.Observe(http.MethodGet, "/x", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodPost, "/api/v1/allocations", http.StatusCreated, 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "http_request_duration_seconds")
	if mf == nil {
		t.Fatal("histogram not exported")
	}
	sum := mf.GetMetric()[0].GetHistogram().GetSampleSum()
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
