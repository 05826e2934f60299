package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/artilun/credential-service/internal/infrastructure/config"
	"github.com/artilun/credential-service/internal/infrastructure/db/postgres"
	"github.com/artilun/credential-service/pkg/logger"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending schema migrations against the PostgreSQL database named by DATABASE_URL.`,
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.StorageDriver != config.DriverPostgres {
		return oops.Code("CONFIG_INVALID").Errorf("migrate requires STORAGE_DRIVER=postgres, got %q", cfg.StorageDriver)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: serviceName})

	cmd.Println("Connecting to database...")
	pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.URL}, log)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	if err := postgres.Migrate(ctx, pool); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
