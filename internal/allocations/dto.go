package allocations

import (
	"strings"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
)

// AllocationDTO is the allocation payload returned to clients and stored in the cache.
type AllocationDTO struct {
	ID                 uuid.UUID   `json:"asset_allocation_id"`
	TenantID           uuid.UUID   `json:"tenant_id"`
	AssetID            uuid.UUID   `json:"asset_id"`
	ReferenceType      string      `json:"reference_type"`
	ReferenceID        string      `json:"reference_id"`
	Quantity           int         `json:"asset_allocation_quantity"`
	AllocatedTo        string      `json:"allocated_to"`
	AllocatedBy        string      `json:"allocated_by"`
	AllocationDate     types.Date  `json:"allocation_date"`
	ExpectedReturnDate *types.Date `json:"expected_return_date,omitempty"`
	ActualReturnDate   *types.Date `json:"actual_return_date,omitempty"`
	Status             string      `json:"status"`
	Remarks            string      `json:"remarks,omitempty"`
	CreatedBy          string      `json:"created_by,omitempty"`
	UpdatedBy          string      `json:"updated_by,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// DueAllocationDTO is an outstanding allocation with the name of the allocated asset.
type DueAllocationDTO struct {
	AllocationDTO
	AssetName string `json:"asset_name"`
}

// CreateAllocationInput is the payload to reserve units of an asset.
type CreateAllocationInput struct {
	AssetID            uuid.UUID   `json:"asset_id" validate:"required"`
	ReferenceType      string      `json:"reference_type" validate:"required"`
	ReferenceID        string      `json:"reference_id" validate:"required"`
	Quantity           int         `json:"asset_allocation_quantity" validate:"required,min=1"`
	AllocatedTo        string      `json:"allocated_to" validate:"required"`
	AllocatedBy        string      `json:"allocated_by" validate:"required"`
	AllocationDate     types.Date  `json:"allocation_date"`
	ExpectedReturnDate *types.Date `json:"expected_return_date"`
	Status             string      `json:"status"`
	Remarks            string      `json:"remarks"`
}

// UpdateAllocationInput carries optional column changes. AssetID is accepted
// only so a re-pointing attempt can be rejected explicitly.
type UpdateAllocationInput struct {
	AssetID            *uuid.UUID  `json:"asset_id"`
	ReferenceType      *string     `json:"reference_type"`
	ReferenceID        *string     `json:"reference_id"`
	Quantity           *int        `json:"asset_allocation_quantity" validate:"omitempty,min=1"`
	AllocatedTo        *string     `json:"allocated_to"`
	AllocatedBy        *string     `json:"allocated_by"`
	AllocationDate     *types.Date `json:"allocation_date"`
	ExpectedReturnDate *types.Date `json:"expected_return_date"`
	ActualReturnDate   *types.Date `json:"actual_return_date"`
	Status             *string     `json:"status"`
	Remarks            *string     `json:"remarks"`
}

// ReturnAllocationInput closes an allocation and hands its units back to the asset.
type ReturnAllocationInput struct {
	ActualReturnDate *types.Date `json:"actual_return_date"`
	Remarks          *string     `json:"remarks"`
}

// FromModel maps a stored allocation to its DTO.
func FromModel(m models.AssetAllocation) AllocationDTO {
	return AllocationDTO{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		AssetID:            m.AssetID,
		ReferenceType:      m.ReferenceType,
		ReferenceID:        m.ReferenceID,
		Quantity:           m.Quantity,
		AllocatedTo:        m.AllocatedTo,
		AllocatedBy:        m.AllocatedBy,
		AllocationDate:     m.AllocationDate,
		ExpectedReturnDate: m.ExpectedReturnDate,
		ActualReturnDate:   m.ActualReturnDate,
		Status:             m.Status.String(),
		Remarks:            m.Remarks,
		CreatedBy:          m.CreatedBy,
		UpdatedBy:          m.UpdatedBy,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func fromModels(rows []models.AssetAllocation) []AllocationDTO {
	out := make([]AllocationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func (in CreateAllocationInput) toModel(tenantID uuid.UUID, refType enums.ReferenceType, status enums.AllocationStatus, actor string) models.AssetAllocation {
	return models.AssetAllocation{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		AssetID:            in.AssetID,
		ReferenceType:      refType.String(),
		ReferenceID:        strings.TrimSpace(in.ReferenceID),
		Quantity:           in.Quantity,
		AllocatedTo:        strings.TrimSpace(in.AllocatedTo),
		AllocatedBy:        strings.TrimSpace(in.AllocatedBy),
		AllocationDate:     in.AllocationDate,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Status:             status,
		Remarks:            in.Remarks,
		CreatedBy:          actor,
		UpdatedBy:          actor,
	}
}

// columns returns the non-quantity column changes.
func (in UpdateAllocationInput) columns() map[string]any {
	cols := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			cols[col] = strings.TrimSpace(*v)
		}
	}
	setDate := func(col string, v *types.Date) {
		if v != nil {
			cols[col] = *v
		}
	}
	setString("reference_id", in.ReferenceID)
	setString("allocated_to", in.AllocatedTo)
	setString("allocated_by", in.AllocatedBy)
	setString("remarks", in.Remarks)
	setDate("allocation_date", in.AllocationDate)
	setDate("expected_return_date", in.ExpectedReturnDate)
	setDate("actual_return_date", in.ActualReturnDate)
	return cols
}
