package models

import (
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
)

// AssetAllocation reserves Quantity units of an asset for a reference entity.
type AssetAllocation struct {
	ID                 uuid.UUID              `gorm:"column:asset_allocation_id;type:uuid;primaryKey"`
	TenantID           uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index:idx_allocations_tenant_reference,priority:1"`
	AssetID            uuid.UUID              `gorm:"column:asset_id;type:uuid;not null;index"`
	ReferenceType      string                 `gorm:"column:reference_type;not null;index:idx_allocations_tenant_reference,priority:2"`
	ReferenceID        string                 `gorm:"column:reference_id;not null;index:idx_allocations_tenant_reference,priority:3"`
	Quantity           int                    `gorm:"column:asset_allocation_quantity;not null"`
	AllocatedTo        string                 `gorm:"column:allocated_to;not null"`
	AllocatedBy        string                 `gorm:"column:allocated_by;not null"`
	AllocationDate     types.Date             `gorm:"column:allocation_date;type:date;not null"`
	ExpectedReturnDate *types.Date            `gorm:"column:expected_return_date;type:date"`
	ActualReturnDate   *types.Date            `gorm:"column:actual_return_date;type:date"`
	Status             enums.AllocationStatus `gorm:"column:status;type:text;not null;default:'Allocated'"`
	Remarks            string                 `gorm:"column:remarks"`
	CreatedBy          string                 `gorm:"column:created_by"`
	UpdatedBy          string                 `gorm:"column:updated_by"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (AssetAllocation) TableName() string { return "asset_allocations" }
