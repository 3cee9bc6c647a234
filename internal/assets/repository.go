package assets

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/assetinventory-backend/internal/references"
	"github.com/angelmondragon/assetinventory-backend/internal/repo"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const listOrder = "created_at DESC, asset_id ASC"

// ErrNegativeQuantity is returned by SetQuantity for values below zero.
var ErrNegativeQuantity = errors.New("asset quantity cannot be negative")

// Repository persists assets.
type Repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) scoped(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return r.base.DB(ctx).Model(&models.Asset{}).Scopes(repo.TenantScope(tenantID))
}

// Create inserts an asset.
func (r *Repository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(asset).Error
}

// FindByID loads an asset owned by tenantID.
func (r *Repository) FindByID(ctx context.Context, tenantID, assetID uuid.UUID) (*models.Asset, error) {
	return repo.FindOne[models.Asset](r.scoped(ctx, tenantID).Where("asset_id = ?", assetID))
}

// List returns one page of the tenant's assets.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[models.Asset], error) {
	return repo.Paginate[models.Asset](r.scoped(ctx, tenantID), listOrder, params)
}

// ListByReference returns one page of the assets owned by a reference entity.
func (r *Repository) ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[models.Asset], error) {
	query := r.scoped(ctx, tenantID).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID)
	return repo.Paginate[models.Asset](query, listOrder, params)
}

// ListByReferenceAndPurchaseRange narrows ListByReference to assets purchased within [start, end].
func (r *Repository) ListByReferenceAndPurchaseRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[models.Asset], error) {
	query := r.scoped(ctx, tenantID).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID).
		Where("purchased_date BETWEEN ? AND ?", start, end)
	return repo.Paginate[models.Asset](query, "purchased_date DESC, asset_id ASC", params)
}

// Update applies columns to one asset and reports the affected row count.
func (r *Repository) Update(ctx context.Context, tenantID, assetID uuid.UUID, columns map[string]any) (int64, error) {
	if len(columns) == 0 {
		return 0, nil
	}
	columns["updated_at"] = time.Now().UTC()
	return repo.UpdateColumns(r.scoped(ctx, tenantID).Where("asset_id = ?", assetID), columns)
}

// Delete removes one asset and reports the affected row count.
func (r *Repository) Delete(ctx context.Context, tenantID, assetID uuid.UUID) (int64, error) {
	query := r.base.DB(ctx).Scopes(repo.TenantScope(tenantID)).Where("asset_id = ?", assetID)
	return repo.DeleteWhere(query, &models.Asset{})
}

// SetQuantity overwrites the stored quantity. Callers that derive the new value
// from a previous read race with concurrent reservations; prefer Reserve/Release.
func (r *Repository) SetQuantity(ctx context.Context, tenantID, assetID uuid.UUID, quantity int) (int64, error) {
	if quantity < 0 {
		return 0, ErrNegativeQuantity
	}
	res := r.base.DB(ctx).Exec(`
		UPDATE assets
		SET quantity = ?, updated_at = ?
		WHERE tenant_id = ? AND asset_id = ?
	`, quantity, time.Now().UTC(), tenantID, assetID)
	return res.RowsAffected, res.Error
}

// Reserve subtracts delta from the asset's quantity only if at least delta
// units remain. Zero affected rows means the asset is missing or short.
// A negative delta returns units and always applies to an existing asset.
func (r *Repository) Reserve(ctx context.Context, tenantID, assetID uuid.UUID, delta int) (int64, error) {
	res := r.base.DB(ctx).Exec(`
		UPDATE assets
		SET quantity = quantity - ?, updated_at = ?
		WHERE tenant_id = ? AND asset_id = ? AND quantity >= ?
	`, delta, time.Now().UTC(), tenantID, assetID, delta)
	return res.RowsAffected, res.Error
}

// Release adds qty units back to the asset.
func (r *Repository) Release(ctx context.Context, tenantID, assetID uuid.UUID, qty int) (int64, error) {
	res := r.base.DB(ctx).Exec(`
		UPDATE assets
		SET quantity = quantity + ?, updated_at = ?
		WHERE tenant_id = ? AND asset_id = ?
	`, qty, time.Now().UTC(), tenantID, assetID)
	return res.RowsAffected, res.Error
}

// AvailableQuantity reads the current quantity of one asset.
func (r *Repository) AvailableQuantity(ctx context.Context, tenantID, assetID uuid.UUID) (int, error) {
	var quantities []int
	err := r.scoped(ctx, tenantID).
		Where("asset_id = ?", assetID).
		Limit(1).
		Pluck("quantity", &quantities).Error
	if err != nil {
		return 0, err
	}
	if len(quantities) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return quantities[0], nil
}

// CountOpenAllocations counts allocations of the asset that still hold units.
func (r *Repository) CountOpenAllocations(ctx context.Context, tenantID, assetID uuid.UUID) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.AssetAllocation{}).
		Scopes(repo.TenantScope(tenantID)).
		Where("asset_id = ? AND status = ?", assetID, enums.AllocationStatusAllocated).
		Count(&count).Error
	return count, err
}

// DeleteClosedAllocations removes the allocations of the asset that no longer
// hold units, ahead of deleting the asset itself.
func (r *Repository) DeleteClosedAllocations(ctx context.Context, tenantID, assetID uuid.UUID) (int64, error) {
	query := r.base.DB(ctx).
		Scopes(repo.TenantScope(tenantID)).
		Where("asset_id = ? AND status <> ?", assetID, enums.AllocationStatusAllocated)
	return repo.DeleteWhere(query, &models.AssetAllocation{})
}
