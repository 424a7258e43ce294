package migrate

import (
	"context"
	"fmt"

	"github.com/frostline/frostline-backend/pkg/config"
	"github.com/frostline/frostline-backend/pkg/db"
	"github.com/frostline/frostline-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot for local development
// when FROSTLINE_AUTO_MIGRATE is on. Other environments use cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "source": "embedded"})

	m, err := New(sqlDB, Source{Embedded: true}, logg)
	if err != nil {
		return err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return fmt.Errorf("checking pending migrations: %w", err)
	}
	if !pending {
		logg.Debug(ctx, "migrate.dev.up_to_date")
		return nil
	}

	logg.Info(ctx, "migrate.dev.start")
	if err := m.Run(ctx, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.dev.done")
	return nil
}
