package database

import (
	"fmt"

	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// sessions opened before active_phone existed
	if err := db.Model(&models.GuestSession{}).
		Where("status = ? AND active_phone IS NULL", models.SessionActive).
		Update("active_phone", gorm.Expr("guest_phone")).Error; err != nil {
		return fmt.Errorf("backfill active_phone: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
