package cache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

type fakeStore struct {
	mu       sync.Mutex
	data     map[string]string
	ttls     map[string]time.Duration
	down     bool
	failSet  bool
	pageSize int
	// endless makes Scan always return a non-zero cursor.
	endless bool

	getCalls  int
	setCalls  int
	scanCalls int
	delCalls  int
	lastDel   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}, pageSize: 10}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.down {
		return "", errConnRefused
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.down || f.failSet {
		return errConnRefused
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanCalls++
	if f.down {
		return nil, 0, errConnRefused
	}
	if f.endless {
		return nil, cursor + 1, nil
	}
	all := make([]string, 0, len(f.data))
	for k := range f.data {
		all = append(all, k)
	}
	sort.Strings(all)
	start := int(cursor)
	end := start + f.pageSize
	if end > len(all) {
		end = len(all)
	}
	var out []string
	for _, k := range all[start:end] {
		if ok, _ := path.Match(match, k); ok {
			out = append(out, k)
		}
	}
	if end >= len(all) {
		return out, 0, nil
	}
	return out, uint64(end), nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalls++
	if f.down {
		return errConnRefused
	}
	f.lastDel = append([]string(nil), keys...)
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func enabledConfig() config.CacheConfig {
	return config.CacheConfig{Enabled: true, TTL: time.Minute, ScanCount: 100, MaxScanIterations: 200}
}

type row struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGetOrPopulateMissThenHit(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)

	calls := 0
	compute := func(context.Context) (pagination.Page[row], error) {
		calls++
		return pagination.Page[row]{Data: []row{{ID: "a1", Name: "Chair"}}, Total: 1}, nil
	}

	key := BuildKey(EntityAsset, ScopeList, Filters{"tenant_id": "t-1", "page": 1, "limit": 10})
	first, err := GetOrPopulate(ctx, c, key, 0, compute)
	require.NoError(t, err)
	second, err := GetOrPopulate(ctx, c, key, 0, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second lookup must be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, time.Minute, store.ttls[key], "non-positive ttl falls back to configured default")
}

func TestGetOrPopulateHonoursExplicitTTL(t *testing.T) {
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)
	_, err := GetOrPopulate(context.Background(), c, "asset:detail:asset_id:x", 5*time.Second, func(context.Context) (row, error) {
		return row{ID: "x"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, store.ttls["asset:detail:asset_id:x"])
}

func TestGetOrPopulateSkipsEmptyResults(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)

	_, err := GetOrPopulate(ctx, c, "asset:list:page:1", 0, func(context.Context) (pagination.Page[row], error) {
		return pagination.Page[row]{Total: 0}, nil
	})
	require.NoError(t, err)
	_, err = GetOrPopulate(ctx, c, "asset:due", 0, func(context.Context) ([]row, error) {
		return nil, nil
	})
	require.NoError(t, err)

	assert.Zero(t, store.setCalls)
	assert.Empty(t, store.data)
}

func TestGetOrPopulateDoesNotCacheComputeErrors(t *testing.T) {
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)
	boom := errors.New("db down")

	_, err := GetOrPopulate(context.Background(), c, "asset:detail", 0, func(context.Context) (row, error) {
		return row{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.setCalls)
}

func TestGetOrPopulateBackendDownFallsBackToCompute(t *testing.T) {
	store := newFakeStore()
	store.down = true
	c := New(store, enabledConfig(), nil, nil)

	got, err := GetOrPopulate(context.Background(), c, "asset:detail:asset_id:1", 0, func(context.Context) (row, error) {
		return row{ID: "1", Name: "X-ray"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, row{ID: "1", Name: "X-ray"}, got)
	assert.Zero(t, store.setCalls, "unreachable backend is bypassed entirely")
}

func TestGetOrPopulateSetFailureStillReturnsValue(t *testing.T) {
	store := newFakeStore()
	store.failSet = true
	c := New(store, enabledConfig(), nil, nil)

	got, err := GetOrPopulate(context.Background(), c, "asset:detail:asset_id:1", 0, func(context.Context) (row, error) {
		return row{ID: "1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, 1, store.setCalls)
}

func TestGetOrPopulateCorruptEntryIsRecomputed(t *testing.T) {
	store := newFakeStore()
	store.data["asset:detail:asset_id:1"] = "{not json"
	c := New(store, enabledConfig(), nil, nil)

	calls := 0
	got, err := GetOrPopulate(context.Background(), c, "asset:detail:asset_id:1", 0, func(context.Context) (row, error) {
		calls++
		return row{ID: "1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "1", got.ID)
	assert.JSONEq(t, `{"id":"1","name":""}`, store.data["asset:detail:asset_id:1"])
}

func TestGetOrPopulateDisabledIsTransparent(t *testing.T) {
	store := newFakeStore()
	cfg := enabledConfig()
	cfg.Enabled = false
	c := New(store, cfg, nil, nil)

	for i := 0; i < 3; i++ {
		got, err := GetOrPopulate(context.Background(), c, "asset:list", 0, func(context.Context) (int, error) {
			return i, nil
		})
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
	assert.Zero(t, store.getCalls)
	assert.Zero(t, store.setCalls)
}

func TestNilCacheAndNilStoreBypass(t *testing.T) {
	var c *Cache
	got, err := GetOrPopulate(context.Background(), c, "asset:list", 0, func(context.Context) (string, error) {
		return "direct", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", got)
	c.InvalidateByPattern(context.Background(), "asset:*")

	withoutStore := New(nil, enabledConfig(), nil, nil)
	assert.False(t, withoutStore.Enabled())
}

func TestInvalidateByPatternDeletesMatchesInOneBatch(t *testing.T) {
	store := newFakeStore()
	store.pageSize = 3
	for i := 0; i < 7; i++ {
		store.data[fmt.Sprintf("assetAllocation:list:tenant_id:t-1:page:%d", i)] = "{}"
	}
	store.data["asset:list:tenant_id:t-1:page:1"] = "{}"
	c := New(store, enabledConfig(), nil, nil)

	c.InvalidateByPattern(context.Background(), Pattern(EntityAllocation))

	assert.Equal(t, 1, store.delCalls)
	assert.Len(t, store.lastDel, 7)
	assert.Len(t, store.data, 1)
	_, kept := store.data["asset:list:tenant_id:t-1:page:1"]
	assert.True(t, kept, "other entities must survive")
}

func TestInvalidateByPatternEmptyCacheIsNoop(t *testing.T) {
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)

	c.InvalidateByPattern(context.Background(), "assetAllocation:*")
	c.InvalidateByPattern(context.Background(), "assetAllocation:*")

	assert.Equal(t, 2, store.scanCalls)
	assert.Zero(t, store.delCalls)
}

func TestInvalidateByPatternBackendDownIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.down = true
	c := New(store, enabledConfig(), nil, nil)

	assert.NotPanics(t, func() {
		c.InvalidateByPattern(context.Background(), "asset:*")
	})
	assert.Zero(t, store.delCalls)
}

func TestInvalidateByPatternStopsAtScanCap(t *testing.T) {
	store := newFakeStore()
	store.endless = true
	cfg := enabledConfig()
	cfg.MaxScanIterations = 5
	c := New(store, cfg, nil, nil)

	c.InvalidateByPattern(context.Background(), "asset:*")
	assert.Equal(t, 5, store.scanCalls)
}

func TestInvalidateSurvivesCancelledContext(t *testing.T) {
	store := newFakeStore()
	store.data["asset:list:page:1"] = "{}"
	c := New(store, enabledConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Invalidate(ctx, EntityAsset)

	assert.Empty(t, store.data)
}

func TestConcurrentMissesAllCompute(t *testing.T) {
	store := newFakeStore()
	c := New(store, enabledConfig(), nil, nil)

	var (
		mu    sync.Mutex
		calls int
		wg    sync.WaitGroup
	)
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got, err := GetOrPopulate(context.Background(), c, "asset:detail:asset_id:1", 0, func(context.Context) (row, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return row{ID: "1"}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "1", got.ID)
		}()
	}
	close(start)
	wg.Wait()
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, 8)
}
