package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/assetinventory-backend/api/responses"
	pkgAuth "github.com/angelmondragon/assetinventory-backend/pkg/auth"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the tenant,
// principal and realm roles it carries.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			roles := claims.Roles()
			principal := claims.Principal()

			ctx := WithTenantID(r.Context(), claims.TenantID)
			ctx = WithPrincipal(ctx, principal)
			ctx = WithRoles(ctx, roles)

			if logg != nil {
				names := make([]string, 0, len(roles))
				for _, role := range roles {
					names = append(names, role.String())
				}
				ctx = logg.WithTenantID(ctx, claims.TenantID.String())
				ctx = logg.WithUserID(ctx, principal)
				ctx = logg.WithRoles(ctx, names)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
