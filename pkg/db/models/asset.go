package models

import (
	"time"

	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset is a physical inventory item owned by a tenant. Quantity counts the
// units still available, i.e. not reserved by an allocation.
type Asset struct {
	ID            uuid.UUID       `gorm:"column:asset_id;type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;index:idx_assets_tenant_reference,priority:1"`
	SourceApp     string          `gorm:"column:source_app"`
	ReferenceType string          `gorm:"column:reference_type;index:idx_assets_tenant_reference,priority:2"`
	ReferenceID   string          `gorm:"column:reference_id;index:idx_assets_tenant_reference,priority:3"`
	AssetCode     string          `gorm:"column:asset_code"`
	SerialNumber  string          `gorm:"column:serial_number"`
	Model         string          `gorm:"column:model"`
	Name          string          `gorm:"column:asset_name;not null"`
	AssetType     string          `gorm:"column:asset_type"`
	Category      string          `gorm:"column:category"`
	Manufacturer  string          `gorm:"column:manufacturer"`
	Status        string          `gorm:"column:asset_status"`
	Condition     string          `gorm:"column:asset_condition"`
	Quantity      int             `gorm:"column:quantity;not null;default:0"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Photo         string          `gorm:"column:asset_photo"`
	Description   string          `gorm:"column:description"`
	AllocatedTo   string          `gorm:"column:allocated_to"`
	PurchasedDate *types.Date     `gorm:"column:purchased_date;type:date"`
	PurchasedBy   string          `gorm:"column:purchased_by"`
	VendorName    string          `gorm:"column:vendor_name"`
	WarrantyUntil *types.Date     `gorm:"column:warranty_expiry;type:date"`
	ExpiredDate   *types.Date     `gorm:"column:expired_date;type:date"`
	InvoiceNumber string          `gorm:"column:invoice_number"`
	Location      string          `gorm:"column:location"`
	Remarks       string          `gorm:"column:remarks"`
	CreatedBy     string          `gorm:"column:created_by"`
	UpdatedBy     string          `gorm:"column:updated_by"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Asset) TableName() string { return "assets" }
