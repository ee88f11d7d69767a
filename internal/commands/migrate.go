package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"todo-assistant/internal/config"
	"todo-assistant/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		return runMigrate(cfg)
	},
}

func runMigrate(cfg config.Config) error {
	// NewDB auto-migrates every model.
	db, err := repository.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Println("[info] schema is up to date")
	return nil
}
