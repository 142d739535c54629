package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sevigo/countpkg/internal/auditdb"
	"github.com/sevigo/countpkg/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending audit-database migrations and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		_, cleanup, err := auditdb.NewDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		defer cleanup()

		slog.Info("audit database migrations applied")
		return nil
	},
}
