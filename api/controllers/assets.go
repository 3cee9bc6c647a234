package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetinventory-backend/api/responses"
	"github.com/angelmondragon/assetinventory-backend/api/validators"
	"github.com/angelmondragon/assetinventory-backend/internal/assets"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

const assetIDParam = "assetId"

func assetServiceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "asset service unavailable")
}

// AssetCreate registers a new asset for the caller's tenant.
func AssetCreate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
			return
		}
		tenantID, actor, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload assets.CreateAssetInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		asset, err := svc.Create(ctx, tenantID, actor, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, asset)
	}
}

func AssetGet(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		asset, err := svc.Get(ctx, tenantID, assetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

func AssetList(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
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

// AssetListByReference lists the assets owned by ?reference_type=&reference_id=.
func AssetListByReference(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
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

// AssetReport lists a reference's assets purchased between start_date and end_date.
func AssetReport(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
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

func AssetUpdate(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
			return
		}
		tenantID, actor, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload assets.UpdateAssetInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		asset, err := svc.Update(ctx, tenantID, assetID, actor, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

func AssetDelete(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, assetServiceUnavailable())
			return
		}
		tenantID, _, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		assetID, err := validators.ParseUUIDParam(r, assetIDParam)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, tenantID, assetID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
