package main

import (
	"github.com/seand52/socialDev/internal/config"
	"github.com/seand52/socialDev/internal/db"
	"github.com/seand52/socialDev/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewConfig(envFile)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err = db.Migrate(cmd.Context(), cfg.Postgres); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}

	log.Info("migrations applied")
	return nil
}
