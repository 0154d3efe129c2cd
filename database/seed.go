package database

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

// SeedOptions configures the bootstrap admin. Both fields empty skips it.
type SeedOptions struct {
	AdminPhone string
	AdminPIN   string
}

var defaultCategories = []string{"Breakfast", "Mains", "Beverages", "Desserts"}

var sampleMenu = map[string][]struct {
	name  string
	price int64
}{
	"Mains":     {{"Pasta Carbonara", 150}, {"Caesar Salad", 150}, {"Garlic Bread", 100}},
	"Beverages": {{"Cappuccino", 100}, {"Masala Chai", 30}},
	"Desserts":  {{"Tiramisu", 100}},
}

// Seed inserts default categories, a sample menu and the bootstrap admin.
// Existing rows are left untouched so it is safe to run repeatedly.
func Seed(db *gorm.DB, opts SeedOptions) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i, name := range defaultCategories {
			category := models.MenuCategory{Name: name, SortOrder: i}
			if err := tx.Where(models.MenuCategory{Name: name}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", name, err)
			}

			for _, item := range sampleMenu[name] {
				menuItem := models.MenuItem{
					CategoryID: category.ID,
					Name:       item.name,
					Price:      decimal.NewFromInt(item.price),
					Available:  true,
				}
				if err := tx.Where(models.MenuItem{Name: item.name}).FirstOrCreate(&menuItem).Error; err != nil {
					return fmt.Errorf("seed menu item %s: %w", item.name, err)
				}
			}
		}

		if opts.AdminPhone == "" && opts.AdminPIN == "" {
			return nil
		}
		return seedAdmin(tx, opts)
	})
}

func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	phone := utils.SanitizePhone(opts.AdminPhone)
	if len(phone) != 10 {
		return errors.New("ADMIN_PHONE must be a 10 digit number")
	}
	if !utils.IsValidPIN(opts.AdminPIN) {
		return errors.New("ADMIN_PIN must be at least 6 digits")
	}

	var existing models.User
	err := tx.Where("phone = ? AND role = ?", phone, models.RoleAdmin).First(&existing).Error
	if err == nil {
		utils.InfoLogger.WithField("phone", utils.FormatPhoneDisplay(phone)).Info("Admin already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashSecret(opts.AdminPIN)
	if err != nil {
		return err
	}
	admin := models.User{Name: "Administrator", Phone: phone, PIN: hash, Role: models.RoleAdmin}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	utils.InfoLogger.WithField("phone", utils.FormatPhoneDisplay(phone)).Info("Admin user created")
	return nil
}
