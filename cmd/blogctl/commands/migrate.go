package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/inkpress/internal/db"
	"github.com/example/inkpress/internal/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create or update the database schema for accounts, posts and the
activity log, including the GIN index used for tag filtering.

Migrations are additive and safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.AutoMigrate(&models.Account{}, &models.Post{}, &models.ActivityLog{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if err := database.EnsureGINIndexOnTags(); err != nil {
		return fmt.Errorf("create tags index: %w", err)
	}

	fmt.Println("schema is up to date")
	return nil
}
