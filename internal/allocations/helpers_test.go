package allocations

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/assetinventory-backend/internal/assets"
	"github.com/angelmondragon/assetinventory-backend/pkg/cache"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/db"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testRefType = "clinic"
	testRefID   = "clinic-1"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:allocations_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// one connection serialises transactions the way row locks would on postgres
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Asset{}, &models.AssetAllocation{}, &models.Document{}))
	return conn
}

// memStore is an in-process cache.Store. When down is set every call fails.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
	down bool
}

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return "", errStoreDown
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errStoreDown
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, _ uint64, match string, _ int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, 0, errStoreDown
	}
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, 0, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errStoreDown
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) keysWithPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// fakeRefs resolves references from an in-memory set.
type fakeRefs struct {
	known map[string]bool
	err   error
}

func (f *fakeRefs) Exists(_ context.Context, refType enums.ReferenceType, refID string, tenantID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[tenantID.String()+"|"+refType.String()+"|"+refID], nil
}

func (f *fakeRefs) add(tenantID uuid.UUID, refType, refID string) {
	f.known[tenantID.String()+"|"+refType+"|"+refID] = true
}

type fixture struct {
	db     *gorm.DB
	repo   *Repository
	store  *memStore
	refs   *fakeRefs
	svc    Service
	tenant uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := openTestDB(t)
	store := newMemStore()
	c := cache.New(store, config.CacheConfig{Enabled: true, TTL: time.Minute}, nil, nil)
	refs := &fakeRefs{known: map[string]bool{}}
	tenant := uuid.New()
	refs.add(tenant, testRefType, testRefID)

	r := NewRepository(conn)
	svc, err := NewService(r, db.FromConn(conn), assets.NewStock(assets.NewRepository(conn)), refs, c, nil)
	require.NoError(t, err)
	return fixture{db: conn, repo: r, store: store, refs: refs, svc: svc, tenant: tenant}
}

func (f fixture) seedAsset(t *testing.T, quantity int) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		ID:            uuid.New(),
		TenantID:      f.tenant,
		ReferenceType: testRefType,
		ReferenceID:   testRefID,
		Name:          "Intraoral camera",
		Quantity:      quantity,
	}
	require.NoError(t, f.db.Create(asset).Error)
	return asset
}

func (f fixture) quantityOf(t *testing.T, assetID uuid.UUID) int {
	t.Helper()
	var asset models.Asset
	require.NoError(t, f.db.Where("asset_id = ?", assetID).Take(&asset).Error)
	return asset.Quantity
}

func (f fixture) countAllocations(t *testing.T, assetID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.AssetAllocation{}).Where("asset_id = ?", assetID).Count(&n).Error)
	return n
}

func createInput(assetID uuid.UUID, qty int) CreateAllocationInput {
	return CreateAllocationInput{
		AssetID:        assetID,
		ReferenceType:  testRefType,
		ReferenceID:    testRefID,
		Quantity:       qty,
		AllocatedTo:    "Dr. Rivera",
		AllocatedBy:    "front-desk",
		AllocationDate: types.Today(),
	}
}
