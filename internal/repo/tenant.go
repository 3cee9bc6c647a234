package repo

import (
	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantScope restricts a query to rows owned by tenantID.
func TenantScope(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// FindOne loads the first row of T matching query. gorm.ErrRecordNotFound is returned unchanged.
func FindOne[T any](query *gorm.DB) (*T, error) {
	var out T
	if err := query.Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Paginate counts the rows matched by query and loads one page of them.
// query must already carry Model and filters.
func Paginate[T any](query *gorm.DB, order string, params pagination.Params) (pagination.Page[T], error) {
	norm := params.Normalize()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return pagination.Page[T]{}, err
	}

	rows := make([]T, 0)
	if total > 0 {
		if err := query.Session(&gorm.Session{}).
			Order(order).
			Limit(norm.Limit).
			Offset(norm.Offset()).
			Find(&rows).Error; err != nil {
			return pagination.Page[T]{}, err
		}
	}
	return pagination.Page[T]{Data: rows, Total: total}, nil
}

// UpdateColumns applies columns to the rows matched by query and reports how many changed.
func UpdateColumns(query *gorm.DB, columns map[string]any) (int64, error) {
	if len(columns) == 0 {
		return 0, nil
	}
	res := query.Updates(columns)
	return res.RowsAffected, res.Error
}

// DeleteWhere removes the rows of model matched by query and reports how many were deleted.
func DeleteWhere(query *gorm.DB, model any) (int64, error) {
	res := query.Delete(model)
	return res.RowsAffected, res.Error
}
