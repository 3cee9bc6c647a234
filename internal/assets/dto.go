package assets

import (
	"strings"
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetDTO is the asset payload returned to clients and stored in the cache.
type AssetDTO struct {
	ID            uuid.UUID       `json:"asset_id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	SourceApp     string          `json:"source_app,omitempty"`
	ReferenceType string          `json:"reference_type,omitempty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	AssetCode     string          `json:"asset_code,omitempty"`
	SerialNumber  string          `json:"serial_number,omitempty"`
	Model         string          `json:"model,omitempty"`
	Name          string          `json:"asset_name"`
	AssetType     string          `json:"asset_type,omitempty"`
	Category      string          `json:"category,omitempty"`
	Manufacturer  string          `json:"manufacturer,omitempty"`
	Status        string          `json:"asset_status,omitempty"`
	Condition     string          `json:"asset_condition,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Photo         string          `json:"asset_photo,omitempty"`
	Description   string          `json:"description,omitempty"`
	AllocatedTo   string          `json:"allocated_to,omitempty"`
	PurchasedDate *types.Date     `json:"purchased_date,omitempty"`
	PurchasedBy   string          `json:"purchased_by,omitempty"`
	VendorName    string          `json:"vendor_name,omitempty"`
	WarrantyUntil *types.Date     `json:"warranty_expiry,omitempty"`
	ExpiredDate   *types.Date     `json:"expired_date,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Location      string          `json:"location,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	UpdatedBy     string          `json:"updated_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateAssetInput is the validated payload to register an asset.
type CreateAssetInput struct {
	SourceApp     string           `json:"source_app"`
	ReferenceType string           `json:"reference_type" validate:"required"`
	ReferenceID   string           `json:"reference_id" validate:"required"`
	AssetCode     string           `json:"asset_code"`
	SerialNumber  string           `json:"serial_number"`
	Model         string           `json:"model"`
	Name          string           `json:"asset_name" validate:"required,max=255"`
	AssetType     string           `json:"asset_type"`
	Category      string           `json:"category"`
	Manufacturer  string           `json:"manufacturer"`
	Status        string           `json:"asset_status"`
	Condition     string           `json:"asset_condition"`
	Quantity      int              `json:"quantity" validate:"min=0"`
	Price         *decimal.Decimal `json:"price"`
	Photo         string           `json:"asset_photo"`
	Description   string           `json:"description"`
	AllocatedTo   string           `json:"allocated_to"`
	PurchasedDate *types.Date      `json:"purchased_date"`
	PurchasedBy   string           `json:"purchased_by"`
	VendorName    string           `json:"vendor_name"`
	WarrantyUntil *types.Date      `json:"warranty_expiry"`
	ExpiredDate   *types.Date      `json:"expired_date"`
	InvoiceNumber string           `json:"invoice_number"`
	Location      string           `json:"location"`
	Remarks       string           `json:"remarks"`
}

// UpdateAssetInput carries optional column changes; nil fields are left untouched.
type UpdateAssetInput struct {
	SourceApp     *string          `json:"source_app"`
	AssetCode     *string          `json:"asset_code"`
	SerialNumber  *string          `json:"serial_number"`
	Model         *string          `json:"model"`
	Name          *string          `json:"asset_name" validate:"omitempty,min=1,max=255"`
	AssetType     *string          `json:"asset_type"`
	Category      *string          `json:"category"`
	Manufacturer  *string          `json:"manufacturer"`
	Status        *string          `json:"asset_status"`
	Condition     *string          `json:"asset_condition"`
	Quantity      *int             `json:"quantity" validate:"omitempty,min=0"`
	Price         *decimal.Decimal `json:"price"`
	Photo         *string          `json:"asset_photo"`
	Description   *string          `json:"description"`
	AllocatedTo   *string          `json:"allocated_to"`
	PurchasedDate *types.Date      `json:"purchased_date"`
	PurchasedBy   *string          `json:"purchased_by"`
	VendorName    *string          `json:"vendor_name"`
	WarrantyUntil *types.Date      `json:"warranty_expiry"`
	ExpiredDate   *types.Date      `json:"expired_date"`
	InvoiceNumber *string          `json:"invoice_number"`
	Location      *string          `json:"location"`
	Remarks       *string          `json:"remarks"`
}

// FromModel maps a stored asset to its DTO.
func FromModel(m models.Asset) AssetDTO {
	return AssetDTO{
		ID:            m.ID,
		TenantID:      m.TenantID,
		SourceApp:     m.SourceApp,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		AssetCode:     m.AssetCode,
		SerialNumber:  m.SerialNumber,
		Model:         m.Model,
		Name:          m.Name,
		AssetType:     m.AssetType,
		Category:      m.Category,
		Manufacturer:  m.Manufacturer,
		Status:        m.Status,
		Condition:     m.Condition,
		Quantity:      m.Quantity,
		Price:         m.Price,
		Photo:         m.Photo,
		Description:   m.Description,
		AllocatedTo:   m.AllocatedTo,
		PurchasedDate: m.PurchasedDate,
		PurchasedBy:   m.PurchasedBy,
		VendorName:    m.VendorName,
		WarrantyUntil: m.WarrantyUntil,
		ExpiredDate:   m.ExpiredDate,
		InvoiceNumber: m.InvoiceNumber,
		Location:      m.Location,
		Remarks:       m.Remarks,
		CreatedBy:     m.CreatedBy,
		UpdatedBy:     m.UpdatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromModels(rows []models.Asset) []AssetDTO {
	out := make([]AssetDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

func (in CreateAssetInput) toModel(tenantID uuid.UUID, actor string) models.Asset {
	price := decimal.Zero
	if in.Price != nil {
		price = *in.Price
	}
	return models.Asset{
		ID:            uuid.New(),
		TenantID:      tenantID,
		SourceApp:     strings.TrimSpace(in.SourceApp),
		ReferenceType: strings.ToLower(strings.TrimSpace(in.ReferenceType)),
		ReferenceID:   strings.TrimSpace(in.ReferenceID),
		AssetCode:     strings.TrimSpace(in.AssetCode),
		SerialNumber:  strings.TrimSpace(in.SerialNumber),
		Model:         strings.TrimSpace(in.Model),
		Name:          strings.TrimSpace(in.Name),
		AssetType:     strings.TrimSpace(in.AssetType),
		Category:      strings.TrimSpace(in.Category),
		Manufacturer:  strings.TrimSpace(in.Manufacturer),
		Status:        strings.TrimSpace(in.Status),
		Condition:     strings.TrimSpace(in.Condition),
		Quantity:      in.Quantity,
		Price:         price,
		Photo:         strings.TrimSpace(in.Photo),
		Description:   in.Description,
		AllocatedTo:   strings.TrimSpace(in.AllocatedTo),
		PurchasedDate: in.PurchasedDate,
		PurchasedBy:   strings.TrimSpace(in.PurchasedBy),
		VendorName:    strings.TrimSpace(in.VendorName),
		WarrantyUntil: in.WarrantyUntil,
		ExpiredDate:   in.ExpiredDate,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		Location:      strings.TrimSpace(in.Location),
		Remarks:       in.Remarks,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
}

// columns returns the column set for a partial update, excluding quantity.
func (in UpdateAssetInput) columns() map[string]any {
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
	setString("source_app", in.SourceApp)
	setString("asset_code", in.AssetCode)
	setString("serial_number", in.SerialNumber)
	setString("model", in.Model)
	setString("asset_name", in.Name)
	setString("asset_type", in.AssetType)
	setString("category", in.Category)
	setString("manufacturer", in.Manufacturer)
	setString("asset_status", in.Status)
	setString("asset_condition", in.Condition)
	setString("asset_photo", in.Photo)
	setString("description", in.Description)
	setString("allocated_to", in.AllocatedTo)
	setString("purchased_by", in.PurchasedBy)
	setString("vendor_name", in.VendorName)
	setString("invoice_number", in.InvoiceNumber)
	setString("location", in.Location)
	setString("remarks", in.Remarks)
	setDate("purchased_date", in.PurchasedDate)
	setDate("warranty_expiry", in.WarrantyUntil)
	setDate("expired_date", in.ExpiredDate)
	if in.Price != nil {
		cols["price"] = *in.Price
	}
	return cols
}
