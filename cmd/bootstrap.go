package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/gameserver-admin/internal/audit"
	auditPostgres "github.com/frahmantamala/gameserver-admin/internal/audit/postgres"
	"github.com/frahmantamala/gameserver-admin/internal/database"
	"github.com/frahmantamala/gameserver-admin/internal/user"
	userPostgres "github.com/frahmantamala/gameserver-admin/internal/user/postgres"
	"github.com/frahmantamala/gameserver-admin/pkg/logger"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial owner account",
	Long:  `Create the initial owner account when the store holds no operators. A password is generated and printed once when none is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		setupLogger(cfg)
		lg := logger.LoggerWrapper()

		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		if err := database.Migrate(ctx, db, false); err != nil {
			return err
		}

		recorder := audit.NewService(auditPostgres.NewAuditRepository(db.Gorm, db.SQLX), lg)
		users := user.NewService(userPostgres.NewUserRepository(db.Gorm), nil, nil, recorder, cfg.Security.BCryptCost, lg)

		result, err := users.Bootstrap(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password)
		if err != nil {
			return err
		}
		reportBootstrap(cmd, result)
		return nil
	},
}

func reportBootstrap(cmd *cobra.Command, result *user.BootstrapResult) {
	out := cmd.OutOrStdout()
	switch {
	case !result.Created:
		fmt.Fprintln(out, "operators already exist; nothing to do")
	case result.GeneratedPassword != "":
		fmt.Fprintf(out, "created owner %q with generated password: %s\n", result.Username, result.GeneratedPassword)
		fmt.Fprintln(out, "change it after the first login")
	default:
		fmt.Fprintf(out, "created owner %q with the configured password\n", result.Username)
	}
}
