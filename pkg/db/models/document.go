package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file attached to a row of another table.
// Rows are keyed by (table_name, table_id, field_name); the file bytes live elsewhere.
type Document struct {
	ID         uuid.UUID `gorm:"column:document_id;type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`
	OwnerTable string    `gorm:"column:table_name;not null;index:idx_documents_owner,priority:1"`
	OwnerID    string    `gorm:"column:table_id;not null;index:idx_documents_owner,priority:2"`
	FieldName  string    `gorm:"column:field_name;not null"`
	FileName   string    `gorm:"column:file_name"`
	FileURL    string    `gorm:"column:file_url"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Document) TableName() string { return "documents" }

const (
	DocumentTableAssets = "assets"
	DocumentFieldPhoto  = "asset_photo"
)
