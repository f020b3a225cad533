package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/QuakeAlert/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  "Create or upgrade the subscriber and notification tables in DATABASE_URL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		return database.Migrate(cfg.Database.URL)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
