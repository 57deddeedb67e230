package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema migrations",
	Long: `Apply the migrations in DB_MIGRATION_FOLDER_PATH to the configured database.

Examples:
  # Migrate to the latest version
  thistle migrate

  # Migrate to a specific version
  thistle migrate --version 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		if cmd.Flags().Changed("version") {
			cfg.DatabaseMigrationVersion, _ = cmd.Flags().GetUint("version")
		}

		ctx := context.Background()
		db, err := database.Open(ctx, cfg.Database(), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.NewMigrationService(logger, cfg.Migration()).MigratePostgres(db.SQLDB())
	},
}

func init() {
	migrateCmd.Flags().Uint("version", 0, "Target version (0 migrates to the latest)")
	rootCmd.AddCommand(migrateCmd)
}
