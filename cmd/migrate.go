package cmd

import (
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cavalli-app/config"
	"github.com/yeremiapane/cavalli-app/database"
	"github.com/yeremiapane/cavalli-app/utils"
)

var seedData bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		utils.InfoLogger.Println("AutoMigrate completed.")

		if !seedData {
			return nil
		}
		if err := database.Seed(db, database.SeedOptions{AdminPhone: cfg.AdminPhone, AdminPIN: cfg.AdminPIN}); err != nil {
			return err
		}
		utils.InfoLogger.Println("Seed completed.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seedData, "seed", false, "insert default categories, sample menu and the bootstrap admin")
}
