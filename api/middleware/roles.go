package middleware

import (
	"net/http"

	"github.com/angelmondragon/assetinventory-backend/api/responses"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

// RequireAnyRole lets the request through when the caller holds at least one
// of the listed realm roles.
func RequireAnyRole(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasAnyRole(RolesFromContext(r.Context()), allowed) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyRole(held, allowed []enums.Role) bool {
	for _, have := range held {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}
