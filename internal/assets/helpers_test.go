package assets

import (
	"context"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/assetinventory-backend/internal/documents"
	"github.com/angelmondragon/assetinventory-backend/pkg/cache"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/db"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:assets_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Asset{}, &models.AssetAllocation{}, &models.Document{}))
	return conn
}

// memStore is an in-process cache.Store.
type memStore struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
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
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fixture struct {
	db    *gorm.DB
	repo  *Repository
	docs  *documents.Repository
	store *memStore
	svc   Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := openTestDB(t)
	store := newMemStore()
	c := cache.New(store, config.CacheConfig{Enabled: true, TTL: time.Minute}, nil, nil)
	r := NewRepository(conn)
	docs := documents.NewRepository(conn)
	svc, err := NewService(r, db.FromConn(conn), docs, c)
	require.NoError(t, err)
	return fixture{db: conn, repo: r, docs: docs, store: store, svc: svc}
}

func seedAsset(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, quantity int) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ReferenceType: "clinic",
		ReferenceID:   "clinic-1",
		Name:          "Dental chair",
		Quantity:      quantity,
	}
	require.NoError(t, conn.Create(asset).Error)
	return asset
}
