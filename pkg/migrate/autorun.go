package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/assetinventory-backend/pkg/config"
	"github.com/angelmondragon/assetinventory-backend/pkg/db"
	"github.com/angelmondragon/assetinventory-backend/pkg/db/models"
	"github.com/angelmondragon/assetinventory-backend/pkg/logger"
)

// MaybeRun applies the schema at startup when AutoMigrate is enabled. Postgres
// runs the embedded goose migrations; the SQLite dev store is migrated from the
// GORM models because the SQL files use Postgres-only syntax.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "driver", "sqlite"), "auto-migrating models")
		}
		if err := client.DB().WithContext(ctx).AutoMigrate(&models.Asset{}, &models.AssetAllocation{}, &models.Document{}); err != nil {
			return fmt.Errorf("auto-migrating sqlite models: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": embeddedDir})
		logg.Info(ctx, "running Goose migrations (auto-run)")
	}

	if err := RunEmbedded(ctx, sqlDB, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "Goose migrations completed")
	}
	return nil
}
