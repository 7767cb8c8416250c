package migrate

import (
	"context"
	"fmt"

	"github.com/agendali/payments-backend/pkg/config"
	"github.com/agendali/payments-backend/pkg/db"
	"github.com/agendali/payments-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup, but only in dev
// environments with the auto-migrate flag on. Production schemas move
// through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "applying pending migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrations up to date")

	return nil
}
