package allocations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/assetinventory-backend/internal/assets"
	"github.com/angelmondragon/assetinventory-backend/internal/references"
	"github.com/angelmondragon/assetinventory-backend/pkg/cache"
	"github.com/angelmondragon/assetinventory-backend/pkg/db"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
	"github.com/angelmondragon/assetinventory-backend/pkg/pagination"
	"github.com/angelmondragon/assetinventory-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDueWithinDays is the look-ahead used by ListDueForReturn when none is given.
const DefaultDueWithinDays = 7

// MaxDueWithinDays bounds the look-ahead window.
const MaxDueWithinDays = 365

// Service runs the allocation reservation protocol: every write that moves
// units touches the allocation row and the asset quantity in one transaction
// and invalidates cached reads only after that transaction commits.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor string, input CreateAllocationInput) (*AllocationDTO, error)
	Get(ctx context.Context, tenantID, allocationID uuid.UUID) (*AllocationDTO, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[AllocationDTO], error)
	ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[AllocationDTO], error)
	ListByReferenceAndDateRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[AllocationDTO], error)
	ListDueForReturn(ctx context.Context, tenantID uuid.UUID, ref references.Filter, withinDays int, params pagination.Params) (pagination.Page[DueAllocationDTO], error)
	Update(ctx context.Context, tenantID, allocationID uuid.UUID, actor string, input UpdateAllocationInput) (*AllocationDTO, error)
	Delete(ctx context.Context, tenantID, allocationID uuid.UUID) error
	Return(ctx context.Context, tenantID, allocationID uuid.UUID, actor string, input ReturnAllocationInput) (*AllocationDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type assetStock interface {
	FindAsset(ctx context.Context, tenantID, assetID uuid.UUID) (*models.Asset, error)
	ReserveQuantity(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, delta int) error
	ReleaseQuantity(ctx context.Context, tx *gorm.DB, tenantID, assetID uuid.UUID, qty int) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	stock assetStock
	refs  references.Checker
	cache *cache.Cache
	logg  *logger.Logger
	today func() types.Date
}

// NewService wires the allocation service. cache and logg may be nil.
func NewService(repo *Repository, tx txRunner, stock assetStock, refs references.Checker, c *cache.Cache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("asset stock required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference checker required")
	}
	return &service{
		repo:  repo,
		tx:    tx,
		stock: stock,
		refs:  refs,
		cache: c,
		logg:  logg,
		today: types.Today,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, actor string, input CreateAllocationInput) (*AllocationDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_allocation_quantity must be at least 1").
			WithDetails(map[string]any{"asset_allocation_quantity": input.Quantity})
	}
	if input.AssetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_id is required")
	}
	if strings.TrimSpace(input.AllocatedTo) == "" || strings.TrimSpace(input.AllocatedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocated_to and allocated_by are required")
	}
	if input.AllocationDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation_date is required")
	}
	status := enums.AllocationStatusAllocated
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := enums.ParseAllocationStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		if parsed == enums.AllocationStatusReturned {
			return nil, errReturnViaEndpoint()
		}
		status = parsed
	}
	ref, err := references.Filter{Type: input.ReferenceType, ID: input.ReferenceID}.Normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureReference(ctx, tenantID, ref); err != nil {
		return nil, err
	}

	asset, err := s.stock.FindAsset(ctx, tenantID, input.AssetID)
	if err != nil {
		return nil, err
	}
	// fast rejection only; the conditional decrement below keeps quantity non-negative
	if asset.Quantity < input.Quantity {
		return nil, assets.InsufficientQuantity(asset.Quantity)
	}

	alloc := input.toModel(tenantID, enums.ReferenceType(ref.Type), status, actor)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &alloc); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "asset not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "create allocation")
		}
		return s.stock.ReserveQuantity(ctx, tx, tenantID, alloc.AssetID, alloc.Quantity)
	})
	if err != nil {
		return nil, storeError(err, "create allocation")
	}

	s.cache.Invalidate(ctx, cache.EntityAllocation, cache.EntityAsset)
	s.logInfo(ctx, "allocation.created", alloc.ID, map[string]any{"asset_id": alloc.AssetID.String(), "quantity": alloc.Quantity})
	dto := FromModel(alloc)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, tenantID, allocationID uuid.UUID) (*AllocationDTO, error) {
	key := cache.BuildKey(cache.EntityAllocation, cache.ScopeDetail, cache.Filters{
		"tenant_id":           tenantID,
		"asset_allocation_id": allocationID,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (*AllocationDTO, error) {
		alloc, err := s.repo.FindByID(ctx, tenantID, allocationID)
		if err != nil {
			return nil, storeError(err, "load allocation")
		}
		dto := FromModel(*alloc)
		return &dto, nil
	})
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[AllocationDTO], error) {
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAllocation, cache.ScopeList, cache.Filters{
		"tenant_id": tenantID,
		"page":      params.Page,
		"limit":     params.Limit,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AllocationDTO], error) {
		page, err := s.repo.List(ctx, tenantID, params)
		return toDTOPage(page, err, "list allocations")
	})
}

func (s *service) ListByReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter, params pagination.Params) (pagination.Page[AllocationDTO], error) {
	ref, err := ref.Normalize()
	if err != nil {
		return pagination.Page[AllocationDTO]{}, err
	}
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAllocation, cache.ScopeList, cache.Filters{
		"tenant_id":      tenantID,
		"reference_type": ref.Type,
		"reference_id":   ref.ID,
		"page":           params.Page,
		"limit":          params.Limit,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AllocationDTO], error) {
		page, err := s.repo.ListByReference(ctx, tenantID, ref, params)
		return toDTOPage(page, err, "list allocations by reference")
	})
}

func (s *service) ListByReferenceAndDateRange(ctx context.Context, tenantID uuid.UUID, ref references.Filter, start, end types.Date, params pagination.Params) (pagination.Page[AllocationDTO], error) {
	ref, err := ref.Normalize()
	if err != nil {
		return pagination.Page[AllocationDTO]{}, err
	}
	if start.IsZero() || end.IsZero() {
		return pagination.Page[AllocationDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required")
	}
	if end.Before(start.Time) {
		return pagination.Page[AllocationDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date").
			WithDetails(map[string]any{"start_date": start.String(), "end_date": end.String()})
	}
	params = params.Normalize()
	key := cache.BuildKey(cache.EntityAllocation, cache.ScopeReport, cache.Filters{
		"tenant_id":      tenantID,
		"reference_type": ref.Type,
		"reference_id":   ref.ID,
		"page":           params.Page,
		"limit":          params.Limit,
		"start_date":     start,
		"end_date":       end,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[AllocationDTO], error) {
		page, err := s.repo.ListByReferenceAndCreatedRange(ctx, tenantID, ref, start, end, params)
		return toDTOPage(page, err, "allocation report")
	})
}

func (s *service) ListDueForReturn(ctx context.Context, tenantID uuid.UUID, ref references.Filter, withinDays int, params pagination.Params) (pagination.Page[DueAllocationDTO], error) {
	if !ref.IsZero() {
		normalized, err := ref.Normalize()
		if err != nil {
			return pagination.Page[DueAllocationDTO]{}, err
		}
		ref = normalized
	}
	if withinDays <= 0 {
		withinDays = DefaultDueWithinDays
	}
	if withinDays > MaxDueWithinDays {
		return pagination.Page[DueAllocationDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "days out of range").
			WithDetails(map[string]any{"max": MaxDueWithinDays})
	}
	params = params.Normalize()
	from := s.today()
	to := from.AddDays(withinDays)
	key := cache.BuildKey(cache.EntityAllocation, cache.ScopeDue, cache.Filters{
		"tenant_id":      tenantID,
		"reference_type": ref.Type,
		"reference_id":   ref.ID,
		"page":           params.Page,
		"limit":          params.Limit,
		"start_date":     from,
		"days":           withinDays,
	})
	return cache.GetOrPopulate(ctx, s.cache, key, 0, func(ctx context.Context) (pagination.Page[DueAllocationDTO], error) {
		page, err := s.repo.ListDue(ctx, tenantID, ref, from, to, params)
		if err != nil {
			return pagination.Page[DueAllocationDTO]{}, pkgerrors.Wrap(pkgerrors.CodeStore, err, "list allocations due for return")
		}
		return page, nil
	})
}

func (s *service) Update(ctx context.Context, tenantID, allocationID uuid.UUID, actor string, input UpdateAllocationInput) (*AllocationDTO, error) {
	if input.AssetID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_id cannot be changed; delete and recreate the allocation")
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset_allocation_quantity must be at least 1").
			WithDetails(map[string]any{"asset_allocation_quantity": *input.Quantity})
	}
	if input.AllocationDate != nil && input.AllocationDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation_date cannot be cleared")
	}

	pre, err := s.repo.FindByID(ctx, tenantID, allocationID)
	if err != nil {
		return nil, storeError(err, "load allocation")
	}

	columns := input.columns()
	if input.Status != nil {
		status, err := enums.ParseAllocationStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		// Returned is entered only through Return and never left, so every
		// unit restored matches exactly one reservation.
		switch {
		case pre.Status == enums.AllocationStatusReturned && status != enums.AllocationStatusReturned:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a returned allocation cannot be reopened").
				WithDetails(map[string]any{"status": pre.Status.String()})
		case status == enums.AllocationStatusReturned && pre.Status != enums.AllocationStatusReturned:
			return nil, errReturnViaEndpoint()
		case status != pre.Status:
			columns["status"] = status
		}
	}
	if input.ReferenceType != nil || input.ReferenceID != nil {
		ref := references.Filter{Type: pre.ReferenceType, ID: pre.ReferenceID}
		if input.ReferenceType != nil {
			ref.Type = *input.ReferenceType
		}
		if input.ReferenceID != nil {
			ref.ID = *input.ReferenceID
		}
		ref, err = ref.Normalize()
		if err != nil {
			return nil, err
		}
		if err := s.ensureReference(ctx, tenantID, ref); err != nil {
			return nil, err
		}
		columns["reference_type"] = ref.Type
		columns["reference_id"] = ref.ID
	}

	delta := 0
	var guard *int
	if input.Quantity != nil && *input.Quantity != pre.Quantity {
		if pre.Status == enums.AllocationStatusReturned {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot change the quantity of a returned allocation")
		}
		delta = *input.Quantity - pre.Quantity
		columns["asset_allocation_quantity"] = *input.Quantity
		guard = &pre.Quantity
	}
	if len(columns) == 0 {
		if input.Quantity != nil || input.Status != nil {
			// values resent unchanged: nothing to write, nothing to reserve
			dto := FromModel(*pre)
			return &dto, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if actor != "" {
		columns["updated_by"] = actor
	}

	var updated *models.AssetAllocation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		affected, err := txRepo.Update(ctx, tenantID, allocationID, guard, columns)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "update allocation")
		}
		if affected == 0 {
			if guard != nil || columns["status"] != nil {
				if _, findErr := txRepo.FindByID(ctx, tenantID, allocationID); findErr == nil {
					return pkgerrors.New(pkgerrors.CodeConflict, "allocation changed concurrently; retry")
				}
			}
			return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found or no changes made")
		}
		if delta != 0 {
			if err := s.stock.ReserveQuantity(ctx, tx, tenantID, pre.AssetID, delta); err != nil {
				return err
			}
		}
		alloc, err := txRepo.FindByID(ctx, tenantID, allocationID)
		if err != nil {
			return err
		}
		updated = alloc
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update allocation")
	}

	entities := []string{cache.EntityAllocation}
	if delta != 0 {
		entities = append(entities, cache.EntityAsset)
	}
	s.cache.Invalidate(ctx, entities...)
	s.logInfo(ctx, "allocation.updated", allocationID, map[string]any{"quantity_delta": delta})
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, tenantID, allocationID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, tenantID, allocationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "delete allocation")
	}
	if deleted == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
	}

	s.cache.Invalidate(ctx, cache.EntityAllocation)
	s.logInfo(ctx, "allocation.deleted", allocationID, nil)
	return nil
}

func (s *service) Return(ctx context.Context, tenantID, allocationID uuid.UUID, actor string, input ReturnAllocationInput) (*AllocationDTO, error) {
	returnedOn := s.today()
	if input.ActualReturnDate != nil && !input.ActualReturnDate.IsZero() {
		returnedOn = *input.ActualReturnDate
	}

	var updated *models.AssetAllocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		pre, err := txRepo.FindByID(ctx, tenantID, allocationID)
		if err != nil {
			return err
		}
		if pre.Status == enums.AllocationStatusReturned {
			return alreadyReturned(pre)
		}
		affected, err := txRepo.MarkReturned(ctx, tenantID, allocationID, returnedOn, actor, input.Remarks)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStore, err, "mark allocation returned")
		}
		if affected == 0 {
			return alreadyReturned(pre)
		}
		if err := s.stock.ReleaseQuantity(ctx, tx, tenantID, pre.AssetID, pre.Quantity); err != nil {
			return err
		}
		alloc, err := txRepo.FindByID(ctx, tenantID, allocationID)
		if err != nil {
			return err
		}
		updated = alloc
		return nil
	})
	if err != nil {
		return nil, storeError(err, "return allocation")
	}

	s.cache.Invalidate(ctx, cache.EntityAllocation, cache.EntityAsset)
	s.logInfo(ctx, "allocation.returned", allocationID, map[string]any{"quantity": updated.Quantity})
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) ensureReference(ctx context.Context, tenantID uuid.UUID, ref references.Filter) error {
	ok, err := s.refs.Exists(ctx, enums.ReferenceType(ref.Type), ref.ID, tenantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reference lookup failed")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "reference not found")
	}
	return nil
}

func (s *service) logInfo(ctx context.Context, msg string, allocationID uuid.UUID, fields map[string]any) {
	if s.logg == nil {
		return
	}
	all := map[string]any{"asset_allocation_id": allocationID.String()}
	for k, v := range fields {
		all[k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, all), msg)
}

func errReturnViaEndpoint() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "status Returned is set by returning the allocation").
		WithDetails(map[string]any{"status": enums.AllocationStatusReturned.String()})
}

func alreadyReturned(alloc *models.AssetAllocation) error {
	details := map[string]any{"status": alloc.Status.String()}
	if alloc.ActualReturnDate != nil {
		details["actual_return_date"] = alloc.ActualReturnDate.String()
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "allocation already returned").WithDetails(details)
}

func toDTOPage(page pagination.Page[models.AssetAllocation], err error, op string) (pagination.Page[AllocationDTO], error) {
	if err != nil {
		return pagination.Page[AllocationDTO]{}, pkgerrors.Wrap(pkgerrors.CodeStore, err, op)
	}
	return pagination.Page[AllocationDTO]{Data: fromModels(page.Data), Total: page.Total}, nil
}

func storeError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeStore, err, op)
}
