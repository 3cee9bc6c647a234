package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/assetinventory-backend/api/responses"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/assetinventory-backend/pkg/errors"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AssetInventory-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady requires the database. Redis is reported but optional, since the
// service keeps serving from the database when the cache is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP Pinger, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AssetInventory-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if dbP == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
			return
		}

		status := map[string]string{"status": "ready", "database": "ok", "cache": "ok"}
		if redisP == nil {
			status["cache"] = "disabled"
		} else if err := redisP.Ping(ctx); err != nil {
			status["cache"] = "degraded"
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "health.cache_unavailable")
			}
		}
		responses.WriteSuccess(w, status)
	}
}
