package repo

import (
	"context"
	"testing"

	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null"`
	Name     string
	Seq      int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.db != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseWithTx(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	assert.Equal(t, db, base.WithTx(nil).db)

	tx := db.Begin()
	defer tx.Rollback()
	assert.Equal(t, tx, base.WithTx(tx).db)
}

func seedWidgets(t *testing.T, db *gorm.DB, tenant uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&widget{ID: uuid.New(), TenantID: tenant, Name: "w", Seq: i}).Error)
	}
}

func TestPaginateIsTenantScoped(t *testing.T) {
	db := newTestDB(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	seedWidgets(t, db, tenantA, 5)
	seedWidgets(t, db, tenantB, 2)

	query := db.Model(&widget{}).Scopes(TenantScope(tenantA))
	page, err := Paginate[widget](query, "seq ASC", pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Data[0].Seq)
	assert.Equal(t, 3, page.Data[1].Seq)
	for _, w := range page.Data {
		assert.Equal(t, tenantA, w.TenantID)
	}
}

func TestPaginateEmpty(t *testing.T) {
	db := newTestDB(t)
	page, err := Paginate[widget](db.Model(&widget{}).Scopes(TenantScope(uuid.New())), "seq ASC", pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestFindOneUpdateDelete(t *testing.T) {
	db := newTestDB(t)
	tenant := uuid.New()
	id := uuid.New()
	require.NoError(t, db.Create(&widget{ID: id, TenantID: tenant, Name: "before"}).Error)

	_, err := FindOne[widget](db.Scopes(TenantScope(uuid.New())).Where("id = ?", id))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "other tenants must not see the row")

	affected, err := UpdateColumns(db.Model(&widget{}).Scopes(TenantScope(tenant)).Where("id = ?", id), map[string]any{"name": "after"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = UpdateColumns(db.Model(&widget{}).Where("id = ?", id), nil)
	require.NoError(t, err)
	assert.Zero(t, affected)

	got, err := FindOne[widget](db.Scopes(TenantScope(tenant)).Where("id = ?", id))
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)

	deleted, err := DeleteWhere(db.Scopes(TenantScope(tenant)).Where("id = ?", id), &widget{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = DeleteWhere(db.Scopes(TenantScope(tenant)).Where("id = ?", id), &widget{})
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
