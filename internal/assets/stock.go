package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock moves asset quantities inside a caller-owned transaction. It never
// invalidates the cache; the caller does that once its transaction commits.
type Stock struct {
	repo *Repository
}

// NewStock builds a Stock over repo.
func NewStock(repo *Repository) *Stock {
	return &Stock{repo: repo}
}

// FindAsset loads an asset outside of any transaction.
func (s *Stock) FindAsset(ctx context.Context, tenantID, assetID uuid.UUID) (*models.Asset, error) {
	asset, err := s.repo.FindByID(ctx, tenantID, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load asset")
	}
	return asset, nil
}

// ReserveQuantity takes delta units from the asset. A negative delta returns
// units. When fewer than delta units remain the call fails with
// INSUFFICIENT_QUANTITY reporting what is available.
func (s *Stock) ReserveQuantity(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	r := s.repo.WithTx(tx)
	affected, err := r.Reserve(ctx, tenantID, assetID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "reserve asset quantity")
	}
	if affected > 0 {
		return nil
	}

	available, err := r.AvailableQuantity(ctx, tenantID, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "read asset quantity")
	}
	return InsufficientQuantity(available)
}

// ReleaseQuantity returns qty units to the asset.
func (s *Stock) ReleaseQuantity(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	affected, err := s.repo.WithTx(tx).Release(ctx, tenantID, assetID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "release asset quantity")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return nil
}

// AdjustQuantity overwrites the asset quantity with an absolute value.
func (s *Stock) AdjustQuantity(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
			WithDetails(map[string]any{"quantity": quantity})
	}
	affected, err := s.repo.WithTx(tx).SetQuantity(ctx, tenantID, assetID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "set asset quantity")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return nil
}

// InsufficientQuantity builds the error reported when a reservation exceeds stock.
func InsufficientQuantity(available int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficient, fmt.Sprintf("insufficient quantity: only %d available", available)).
		WithDetails(map[string]any{"available": available})
}
