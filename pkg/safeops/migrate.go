package safeops

import (
	"context"
	"fmt"
)

// Migrate prepares the schema on the configured store.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.log.Info().Str("store", a.config.StoreKind).Msg("running migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	a.log.Info().Msg("migrations complete")
	return nil
}
