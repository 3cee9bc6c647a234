package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/assetinventory-backend/api/controllers"
	"github.com/angelmondragon/assetinventory-backend/api/middleware"
	"github.com/angelmondragon/assetinventory-backend/internal/allocations"
	"github.com/angelmondragon/assetinventory-backend/internal/assets"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
	"github.com/angelmondragon/assetinventory-backend/pkg/metrics"
	"github.com/angelmondragon/assetinventory-backend/pkg/redis"
)

var (
	// Roles allowed to create allocations.
	allocationWriters = []enums.Role{enums.RoleTenant, enums.RoleDentist, enums.RoleSuperUser}
	// Every other allocation route also admits the front desk.
	allocationUsers = []enums.Role{enums.RoleTenant, enums.RoleDentist, enums.RoleSuperUser, enums.RoleReceptionist}
	assetWriters    = []enums.Role{enums.RoleTenant, enums.RoleSuperUser}
	assetReaders    = allocationUsers
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	assetService assets.Service,
	allocationService allocations.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		cachePinger controllers.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		cachePinger = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Recoverer(logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Cache.IdempotencyTTL, logg))

		r.Route("/assets", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, assetReaders...))
				r.Get("/", controllers.AssetList(assetService, logg))
				r.Get("/by-reference", controllers.AssetListByReference(assetService, logg))
				r.Get("/report", controllers.AssetReport(assetService, logg))
				r.Get("/{assetId}", controllers.AssetGet(assetService, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, assetWriters...))
				r.Post("/", controllers.AssetCreate(assetService, logg))
				r.Patch("/{assetId}", controllers.AssetUpdate(assetService, logg))
				r.Delete("/{assetId}", controllers.AssetDelete(assetService, logg))
			})
		})

		r.Route("/allocations", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(logg, allocationWriters...)).
				Post("/", controllers.AllocationCreate(allocationService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, allocationUsers...))
				r.Get("/", controllers.AllocationList(allocationService, logg))
				r.Get("/by-reference", controllers.AllocationListByReference(allocationService, logg))
				r.Get("/report", controllers.AllocationReport(allocationService, logg))
				r.Get("/due", controllers.AllocationsDue(allocationService, logg))
				r.Get("/{allocationId}", controllers.AllocationGet(allocationService, logg))
				r.Patch("/{allocationId}", controllers.AllocationUpdate(allocationService, logg))
				r.Delete("/{allocationId}", controllers.AllocationDelete(allocationService, logg))
				r.Post("/{allocationId}/return", controllers.AllocationReturn(allocationService, logg))
			})
		})
	})

	return r
}
