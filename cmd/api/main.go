package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/assetinventory-backend/api/routes"
	"github.com/angelmondragon/assetinventory-backend/internal/allocations"
	"github.com/angelmondragon/assetinventory-backend/internal/assets"
	"github.com/angelmondragon/assetinventory-backend/internal/documents"
	"github.com/angelmondragon/assetinventory-backend/internal/references"
	"github.com/angelmondragon/assetinventory-backend/pkg/cache"
	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/db"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
	"github.com/angelmondragon/assetinventory-backend/pkg/metrics"
	"github.com/angelmondragon/assetinventory-backend/pkg/migrate"
	"github.com/angelmondragon/assetinventory-backend/pkg/redis"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := cfg.DB
	if cfg.FeatureFlags.UseSQLite {
		dbCfg.Driver = "sqlite"
	}
	dbClient, err := db.New(ctx, dbCfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	// The registry lives in its own database in production; locally it shares the primary.
	refConn := dbClient
	if cfg.ReferenceDB.Enabled() {
		refConn, err = db.New(ctx, cfg.ReferenceDB.DBConfig(cfg.DB), logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, refConn.Close()) }()
	}
	refChecker, err := references.NewRegistry(refConn.DB())
	if err != nil {
		return err
	}

	redisClient := openRedis(ctx, cfg, logg)
	if redisClient != nil {
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)

	var store cache.Store
	if redisClient != nil {
		store = redisClient
	}
	assetCache := cache.New(store, cfg.Cache, logg, metrics.NewCacheMetrics(registry))

	assetRepo := assets.NewRepository(dbClient.DB())
	assetService, err := assets.NewService(assetRepo, dbClient, documents.NewRepository(dbClient.DB()), assetCache)
	if err != nil {
		return err
	}
	allocationService, err := allocations.NewService(
		allocations.NewRepository(dbClient.DB()),
		dbClient,
		assets.NewStock(assetRepo),
		refChecker,
		assetCache,
		logg,
	)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			assetService,
			allocationService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"cache": assetCache.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openRedis returns nil when no endpoint is configured or the cache is
// disabled. An unreachable server at boot is tolerated; go-redis reconnects.
func openRedis(ctx context.Context, cfg *config.Config, logg *logger.Logger) *redis.Client {
	if !cfg.Cache.Enabled || !cfg.Redis.Configured() {
		logg.Warn(ctx, "cache disabled, serving every read from the database")
		return nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err == nil {
		return client
	}
	if client != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unreachable at startup, continuing in degraded mode")
		return client
	}
	logg.Error(ctx, "invalid redis configuration, cache disabled", err)
	return nil
}
