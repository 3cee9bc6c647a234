package references

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checker answers whether a reference entity exists for a tenant.
type Checker interface {
	Exists(ctx context.Context, refType enums.ReferenceType, refID string, tenantID uuid.UUID) (bool, error)
}

type target struct {
	table    string
	idColumn string
}

// registryTargets maps each reference type to its registry table.
var registryTargets = map[enums.ReferenceType]target{
	enums.ReferenceTypeClinic:       {table: "clinic", idColumn: "clinic_id"},
	enums.ReferenceTypeDentist:      {table: "dentist", idColumn: "dentist_id"},
	enums.ReferenceTypeReceptionist: {table: "reception", idColumn: "reception_id"},
	enums.ReferenceTypeSupplier:     {table: "supplier", idColumn: "supplier_id"},
	enums.ReferenceTypePatient:      {table: "patient", idColumn: "patient_id"},
	enums.ReferenceTypeBranch:       {table: "branch", idColumn: "branch_id"},
}

// Registry looks references up in the registry database.
type Registry struct {
	db *gorm.DB
}

// NewRegistry binds the checker to the registry connection.
func NewRegistry(db *gorm.DB) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("registry db required")
	}
	return &Registry{db: db}, nil
}

// Exists reports false for unknown reference types without touching the database.
func (r *Registry) Exists(ctx context.Context, refType enums.ReferenceType, refID string, tenantID uuid.UUID) (bool, error) {
	t, ok := registryTargets[refType]
	if !ok || refID == "" {
		return false, nil
	}

	var found []int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND tenant_id = ? LIMIT 1", t.table, t.idColumn)
	if err := r.db.WithContext(ctx).Raw(query, refID, tenantID).Scan(&found).Error; err != nil {
		return false, fmt.Errorf("lookup %s reference: %w", refType, err)
	}
	return len(found) > 0, nil
}
