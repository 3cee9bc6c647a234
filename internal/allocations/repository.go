package allocations

import (
	"context"
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

const listOrder = "created_at DESC, asset_allocation_id ASC"

// Repository persists asset allocations.
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
	return r.base.DB(ctx).Model(&models.AssetAllocation{}).Scopes(repo.TenantScope(tenantID))
}

// Create inserts an allocation.
func (r *Repository) Create(ctx context.Context, alloc *models.AssetAllocation) error {
	if alloc.ID == uuid.Nil {
		alloc.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(alloc).Error
}

// FindByID loads an allocation owned by tenantID.
func (r *Repository) FindByID(ctx context.Context, tenantID, allocationID uuid.UUID) (*models.AssetAllocation, error) {
	return repo.FindOne[models.AssetAllocation](r.scoped(ctx, tenantID).Where("asset_allocation_id = ?", allocationID))
}

// List returns one page of the tenant's allocations.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[models.AssetAllocation], error) {
	return repo.Paginate[models.AssetAllocation](r.scoped(ctx, tenantID), listOrder, params)
}

// ListByReference returns one page of the allocations made to a reference entity.
func (r *Repository) ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[models.AssetAllocation], error) {
	query := r.scoped(ctx, tenantID).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID)
	return repo.Paginate[models.AssetAllocation](query, listOrder, params)
}

// ListByReferenceAndCreatedRange narrows ListByReference to allocations recorded
// on the UTC days start through end inclusive.
func (r *Repository) ListByReferenceAndCreatedRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[models.AssetAllocation], error) {
	query := r.scoped(ctx, tenantID).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID).
		Where("created_at >= ? AND created_at < ?", start.Time.UTC(), end.AddDays(1).Time.UTC())
	return repo.Paginate[models.AssetAllocation](query, listOrder, params)
}

type dueRow struct {
	models.AssetAllocation `gorm:"embedded"`
	AssetName              string `gorm:"column:asset_name"`
}

// ListDue returns outstanding allocations whose expected return date falls in [from, to].
// An empty ref covers every reference entity of the tenant.
func (r *Repository) ListDue(ctx context.Context, tenantID uuid.UUID, ref references.Filter, from, to types.Date, params pagination.Params) (pagination.Page[DueAllocationDTO], error) {
	norm := params.Normalize()
	build := func() *gorm.DB {
		q := r.base.DB(ctx).
			Table("asset_allocations").
			Joins("JOIN assets ON assets.asset_id = asset_allocations.asset_id AND assets.tenant_id = asset_allocations.tenant_id").
			Where("asset_allocations.tenant_id = ?", tenantID).
			Where("asset_allocations.status <> ?", enums.AllocationStatusReturned).
			Where("asset_allocations.expected_return_date BETWEEN ? AND ?", from, to)
		if !ref.IsZero() {
			q = q.Where("asset_allocations.reference_type = ? AND asset_allocations.reference_id = ?", ref.Type, ref.ID)
		}
		return q
	}

	var total int64
	if err := build().Count(&total).Error; err != nil {
		return pagination.Page[DueAllocationDTO]{}, err
	}

	out := make([]DueAllocationDTO, 0)
	if total == 0 {
		return pagination.Page[DueAllocationDTO]{Data: out, Total: 0}, nil
	}

	var rows []dueRow
	err := build().
		Select("asset_allocations.*, assets.asset_name AS asset_name").
		Order("asset_allocations.expected_return_date ASC, asset_allocations.asset_allocation_id ASC").
		Limit(norm.Limit).
		Offset(norm.Offset()).
		Scan(&rows).Error
	if err != nil {
		return pagination.Page[DueAllocationDTO]{}, err
	}
	for _, row := range rows {
		out = append(out, DueAllocationDTO{AllocationDTO: FromModel(row.AssetAllocation), AssetName: row.AssetName})
	}
	return pagination.Page[DueAllocationDTO]{Data: out, Total: total}, nil
}

// Update applies columns to one allocation. When expectedQty is set the row
// only changes if its quantity still equals *expectedQty. Quantity and status
// changes never apply to a returned row.
func (r *Repository) Update(ctx context.Context, tenantID, allocationID uuid.UUID, expectedQty *int, columns map[string]any) (int64, error) {
	if len(columns) == 0 {
		return 0, nil
	}
	_, statusChange := columns["status"]
	columns["updated_at"] = time.Now().UTC()
	query := r.scoped(ctx, tenantID).Where("asset_allocation_id = ?", allocationID)
	if expectedQty != nil {
		query = query.Where("asset_allocation_quantity = ?", *expectedQty)
	}
	if expectedQty != nil || statusChange {
		query = query.Where("status <> ?", enums.AllocationStatusReturned)
	}
	return repo.UpdateColumns(query, columns)
}

// MarkReturned flips an outstanding allocation to Returned. Zero affected rows
// means it is missing or was already returned.
func (r *Repository) MarkReturned(ctx context.Context, tenantID, allocationID uuid.UUID, returnedOn types.Date, actor string, remarks *string) (int64, error) {
	columns := map[string]any{
		"status":             enums.AllocationStatusReturned,
		"actual_return_date": returnedOn,
		"updated_by":         actor,
		"updated_at":         time.Now().UTC(),
	}
	if remarks != nil {
		columns["remarks"] = *remarks
	}
	query := r.scoped(ctx, tenantID).
		Where("asset_allocation_id = ?", allocationID).
		Where("status <> ?", enums.AllocationStatusReturned)
	return repo.UpdateColumns(query, columns)
}

// Delete removes one allocation and reports the affected row count.
func (r *Repository) Delete(ctx context.Context, tenantID, allocationID uuid.UUID) (int64, error) {
	query := r.base.DB(ctx).Scopes(repo.TenantScope(tenantID)).Where("asset_allocation_id = ?", allocationID)
	return repo.DeleteWhere(query, &models.AssetAllocation{})
}
