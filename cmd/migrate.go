package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "apply the embedded schema migrations for the configured store",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, migrateRollback); err != nil {
		return err
	}

	logger.LoggerWrapper().Info("migrations applied", "dialect", db.Dialect, "rollback", migrateRollback)
	return nil
}
