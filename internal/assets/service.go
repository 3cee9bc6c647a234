package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assetinventory-backend/internal/documents"
	"github.com/angelmondragon/assetinventory-backend/internal/references"
	"github.com/angelmondragon/assetinventory-backend/pkg/cache"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes tenant-scoped asset management.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor string, input CreateAssetInput) (*AssetDTO, error)
	Get(ctx context.Context, tenantID, assetID uuid.UUID) (*AssetDTO, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[AssetDTO], error)
	ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[AssetDTO], error)
	ListByReferenceAndDateRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[AssetDTO], error)
	Update(ctx context.Context, tenantID, assetID uuid.UUID, actor string, input UpdateAssetInput) (*AssetDTO, error)
	Delete(ctx context.Context, tenantID, assetID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  *Repository
	stock *Stock
	tx    txRunner
	docs  *documents.Repository
	cache *cache.Cache
}

// NewService constructs the asset service. A nil cache disables caching.
func NewService(repo *Repository, tx txRunner, docs *documents.Repository, c *cache.Cache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if docs == nil {
		return nil, fmt.Errorf("document repository required")
	}
	return &service{
		repo:  repo,
		stock: NewStock(repo),
		tx:    tx,
		docs:  docs,
		cache: c,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, actor string, input CreateAssetInput) (*AssetDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if _, err := enums.ParseReferenceType(input.ReferenceType); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference_type")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	asset := input.toModel(tenantID, actor)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &asset); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "create asset")
		}
		if asset.Photo != "" {
			if _, err := s.docs.WithTx(tx).Attach(ctx, tenantID, models.DocumentTableAssets, asset.ID.String(), models.DocumentFieldPhoto, asset.Photo); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStore, err, "record asset photo")
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "create asset")
	}

	s.cache.Invalidate(ctx, cache.EntityAsset)
	dto := FromModel(asset)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, tenantID, assetID uuid.UUID) (*AssetDTO, error) {
	key := cache.BuildKey(cache.EntityAsset, cache.ScopeDetail, cache.Filters{
		"tenant_id": tenantID,
		"asset_id":  assetID,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (*AssetDTO, error) {
		asset, err := s.repo.FindByID(ctx, tenantID, assetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load asset")
		}
		dto := FromModel(*asset)
		return &dto, nil
	})
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[AssetDTO], error) {
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAsset, cache.ScopeList, cache.Filters{
		"tenant_id": tenantID,
		"page":      params.Page,
		"limit":     params.Limit,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AssetDTO], error) {
		page, err := s.repo.List(ctx, tenantID, params)
		return toDTOPage(page, err, "list assets")
	})
}

func (s *service) ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[AssetDTO], error) {
	ref, err := ref.Normalize()
	if err != nil {
		return pagination.Page[AssetDTO]{}, err
	}
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAsset, cache.ScopeList, cache.Filters{
		"tenant_id":      tenantID,
		"reference_type": ref.Type,
		"reference_id":   ref.ID,
		"page":           params.Page,
		"limit":          params.Limit,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AssetDTO], error) {
		page, err := s.repo.ListByReference(ctx, tenantID, ref, params)
		return toDTOPage(page, err, "list assets by reference")
	})
}

func (s *service) ListByReferenceAndDateRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[AssetDTO], error) {
	ref, err := ref.Normalize()
	if err != nil {
		return pagination.Page[AssetDTO]{}, err
	}
	if err := validateRange(start, end); err != nil {
		return pagination.Page[AssetDTO]{}, err
	}
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAsset, cache.ScopeReport, cache.Filters{
		"tenant_id":      tenantID,
		"reference_type": ref.Type,
		"reference_id":   ref.ID,
		"page":           params.Page,
		"limit":          params.Limit,
		"start_date":     start,
		"end_date":       end,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AssetDTO], error) {
		page, err := s.repo.ListByReferenceAndPurchaseRange(ctx, tenantID, ref, start, end, params)
		return toDTOPage(page, err, "asset purchase report")
	})
}

func (s *service) Update(ctx context.Context, tenantID, assetID uuid.UUID, actor string, input UpdateAssetInput) (*AssetDTO, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_name cannot be empty")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	columns := input.columns()
	if len(columns) == 0 && input.Quantity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if len(columns) > 0 && actor != "" {
		columns["updated_by"] = actor
	}

	var updated *models.Asset
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, tenantID, assetID); err != nil {
			return err
		}
		if _, err := txRepo.Update(ctx, tenantID, assetID, columns); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "update asset")
		}
		if input.Quantity != nil {
			if err := s.stock.AdjustQuantity(ctx, tx, tenantID, assetID, *input.Quantity); err != nil {
				return err
			}
		}
		if input.Photo != nil {
			if err := s.replacePhoto(ctx, tx, tenantID, assetID, strings.TrimSpace(*input.Photo)); err != nil {
				return err
			}
		}
		asset, err := txRepo.FindByID(ctx, tenantID, assetID)
		if err != nil {
			return err
		}
		updated = asset
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update asset")
	}

	entities := []string{cache.EntityAsset}
	if input.Name != nil {
		// due-for-return rows embed the asset name
		entities = append(entities, cache.EntityAllocation)
	}
	s.cache.Invalidate(ctx, entities...)
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) replacePhoto(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, url string) error {
	docs := s.docs.WithTx(tx)
	owner := assetID.String()
	if _, err := docs.DeleteForOwner(ctx, tenantID, models.DocumentTableAssets, owner, models.DocumentFieldPhoto); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "remove asset photo")
	}
	if url == "" {
		return nil
	}
	if _, err := docs.Attach(ctx, tenantID, models.DocumentTableAssets, owner, models.DocumentFieldPhoto, url); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "record asset photo")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, tenantID, assetID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		open, err := txRepo.CountOpenAllocations(ctx, tenantID, assetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "count asset allocations")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "asset has outstanding allocations").
				WithDetails(map[string]any{"open_allocations": open})
		}
		if _, err := s.docs.WithTx(tx).DeleteForOwner(ctx, tenantID, models.DocumentTableAssets, assetID.String(), ""); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "delete asset documents")
		}
		if _, err := txRepo.DeleteClosedAllocations(ctx, tenantID, assetID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "delete closed allocations")
		}
		deleted, err := txRepo.Delete(ctx, tenantID, assetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "delete asset")
		}
		if deleted == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return storeError(err, "delete asset")
	}

	// the asset's closed allocations went with it
	s.cache.Invalidate(ctx, cache.EntityAsset, cache.EntityAllocation)
	return nil
}

func toDTOPage(page pagination.Page[models.Asset], err error, op string) (pagination.Page[AssetDTO], error) {
	if err != nil {
		return pagination.Page[AssetDTO]{}, pkgerrors.Wrap(pkgerrors.CodeStore, err, op)
	}
	return pagination.Page[AssetDTO]{Data: fromModels(page.Data), Total: page.Total}, nil
}

func validateRange(start, end types.Date) error {
	if start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required")
	}
	if end.Before(start.Time) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date").
			WithDetails(map[string]any{"start_date": start.String(), "end_date": end.String()})
	}
	return nil
}

func storeError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeStore, err, op)
}
