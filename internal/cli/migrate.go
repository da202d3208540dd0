package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-engine/internal/config"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-engine/pkg"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBDriver != config.DriverPostgres {
				return errors.New("migrate requires DB_DRIVER=postgres")
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			if err := postgres.AutoMigrate(db); err != nil {
				return err
			}
			logger.Info("Schema migrated")
			return nil
		},
	}
	commonFlags(cmd.Flags())
	return cmd
}
