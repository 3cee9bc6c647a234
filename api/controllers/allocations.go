package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetinventory-backend/api/responses"
	"github.com/angelmondragon/assetinventory-backend/api/validators"
	"github.com/angelmondragon/assetinventory-backend/internal/allocations"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

const allocationIDParam = "allocationId"

func allocationServiceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "allocation service unavailable")
}

// AllocationCreate reserves asset quantity for a reference entity.
func AllocationCreate(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, actor, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload allocations.CreateAllocationInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		allocation, err := svc.Create(ctx, tenantID, actor, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, allocation)
	}
}

func AllocationGet(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		allocationID, err := validators.ParseUUIDParam(r, allocationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		allocation, err := svc.Get(ctx, tenantID, allocationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}

func AllocationList(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.List(ctx, tenantID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func AllocationListByReference(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ref, err := validators.ParseReferenceFilter(r, true)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListByReference(ctx, tenantID, ref, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

// AllocationReport lists a reference's allocations created between start_date and end_date.
func AllocationReport(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ref, err := validators.ParseReferenceFilter(r, true)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		start, err := validators.ParseQueryDate(r, "start_date")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		end, err := validators.ParseQueryDate(r, "end_date")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListByReferenceAndDateRange(ctx, tenantID, ref, start, end, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

// AllocationsDue lists open allocations expected back within ?days= (default 7).
func AllocationsDue(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ref, err := validators.ParseReferenceFilter(r, false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, "days", allocations.DefaultDueWithinDays, 1, allocations.MaxDueWithinDays)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListDueForReturn(ctx, tenantID, ref, days, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}

func AllocationUpdate(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, actor, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		allocationID, err := validators.ParseUUIDParam(r, allocationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload allocations.UpdateAllocationInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		allocation, err := svc.Update(ctx, tenantID, allocationID, actor, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}

// AllocationDelete removes the allocation record. Reserved quantity stays
// reserved; use the return route to give it back.
func AllocationDelete(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		allocationID, err := validators.ParseUUIDParam(r, allocationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, tenantID, allocationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func AllocationReturn(svc allocations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, allocationServiceUnavailable())
			return
		}
		tenantID, actor, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		allocationID, err := validators.ParseUUIDParam(r, allocationIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload allocations.ReturnAllocationInput
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		allocation, err := svc.Return(ctx, tenantID, allocationID, actor, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, allocation)
	}
}
