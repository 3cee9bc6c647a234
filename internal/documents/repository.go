package documents

import (
	"context"
	"strings"

	"github.com/angelmondragon/assetinventory-backend/internal/repo"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists document rows attached to other tables.
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

// Attach records a file reference for (table, id, field).
func (r *Repository) Attach(ctx context.Context, tenantID uuid.UUID, table, ownerID, field, fileURL string) (*models.Document, error) {
	doc := &models.Document{
		ID:         uuid.New(),
		TenantID:   tenantID,
		OwnerTable: table,
		OwnerID:    ownerID,
		FieldName:  field,
		FileName:   fileNameFromURL(fileURL),
		FileURL:    fileURL,
	}
	if err := r.base.DB(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// ListForOwner returns every document attached to a row.
func (r *Repository) ListForOwner(ctx context.Context, tenantID uuid.UUID, table, ownerID string) ([]models.Document, error) {
	var docs []models.Document
	err := r.base.DB(ctx).
		Scopes(repo.TenantScope(tenantID)).
		Where("table_name = ? AND table_id = ?", table, ownerID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// DeleteForOwner removes the documents attached to a row, optionally limited to one field.
func (r *Repository) DeleteForOwner(ctx context.Context, tenantID uuid.UUID, table, ownerID, field string) (int64, error) {
	query := r.base.DB(ctx).
		Scopes(repo.TenantScope(tenantID)).
		Where("table_name = ? AND table_id = ?", table, ownerID)
	if field != "" {
		query = query.Where("field_name = ?", field)
	}
	return repo.DeleteWhere(query, &models.Document{})
}

func fileNameFromURL(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
