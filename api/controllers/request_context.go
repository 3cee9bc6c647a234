package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/assetinventory-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
)

// callerFromRequest returns the tenant and audit principal seeded by the auth middleware.
func callerFromRequest(r *http.Request) (uuid.UUID, string, error) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	return tenantID, middleware.PrincipalFromContext(r.Context()), nil
}
