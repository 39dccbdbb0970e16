package main

import (
	"errors"
	"fmt"
	"os"

	"costwise/internal/config"
	"costwise/internal/database"
	"costwise/internal/logger"
	"costwise/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// catalog is the default fixed-cost structure created for the seed
// organization. Idempotent: rerunning the seed skips what exists.
var catalog = []struct {
	Name  string
	Items []string
}{
	{
		Name: "Cost of Transportation",
		Items: []string{
			"Zásilkovna/Packetta",
			"GLS",
			"PPL",
			"Ceska Posta",
			"Costs of Transportation (Tsucho, Sabo, Raben)",
		},
	},
	{
		Name: "Cost of Marketing",
		Items: []string{
			"Sklik",
			"Zboží.cz",
			"Heureka CZ",
			"Google",
			"Bing",
			"Facebook",
			"Mergado",
			"PPC Bee",
			"Conviu",
			"Lead Hub (direct emails)",
			"Firmy.cz",
			"Domains",
			"Graphics, Banners, Promotions",
			"Spare Line 1",
			"Spare Line 2",
		},
	},
	{
		Name: "Operating Costs",
		Items: []string{
			"Rent, Water, Gas, Waste",
			"Packaging Materials",
			"Printer Labels",
			"Net Wages",
			"Social and Health Insurance",
			"Temporary Staff",
			"Car Insurance",
			"Fuel",
			"HR",
			"IT, Repairs",
			"Accounting",
			"Finance",
			"Spare Line 1",
			"Spare Line 2",
		},
	},
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db := dbManager.DB()

	admin, err := seedAdmin(db, cfg)
	if err != nil {
		return err
	}

	org, err := seedOrganization(db, cfg, admin)
	if err != nil {
		return err
	}

	if err := seedCatalog(db, admin, org); err != nil {
		return err
	}

	log.Info("Seed completed")
	return nil
}

func seedAdmin(db *gorm.DB, cfg *config.Config) (*models.User, error) {
	var admin models.User
	err := db.Where("email = ?", cfg.SeedAdminEmail).First(&admin).Error
	if err == nil {
		logger.Get().Infof("Admin user already exists: %s", cfg.SeedAdminEmail)
		return &admin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin = models.User{
		Email:        cfg.SeedAdminEmail,
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Get().Infof("Created admin user: %s", cfg.SeedAdminEmail)
	return &admin, nil
}

func seedOrganization(db *gorm.DB, cfg *config.Config, admin *models.User) (*models.Organization, error) {
	var org models.Organization
	err := db.Where("name = ?", cfg.SeedOrgName).First(&org).Error
	if err == nil {
		logger.Get().Infof("Organization already exists: %s", cfg.SeedOrgName)
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up organization: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		org = models.Organization{Name: cfg.SeedOrgName, CreatedByID: admin.ID}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		membership := models.OrganizationUser{
			OrganizationID: org.ID,
			UserID:         admin.ID,
			OrgRole:        models.OrgRoleOwner,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	logger.Get().Infof("Created organization: %s", cfg.SeedOrgName)
	return &org, nil
}

func seedCatalog(db *gorm.DB, admin *models.User, org *models.Organization) error {
	for i, cat := range catalog {
		var existing models.Category
		err := db.Where("organization_id = ? AND name = ?", org.ID, cat.Name).First(&existing).Error
		if err == nil {
			logger.Get().Infof("Category already exists: %s", cat.Name)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up category %q: %w", cat.Name, err)
		}

		category := models.Category{
			OrganizationID: org.ID,
			Name:           cat.Name,
			Scope:          models.ScopeFixed,
			SortOrder:      i + 1,
			CreatedByID:    admin.ID,
		}
		if err := db.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to create category %q: %w", cat.Name, err)
		}

		for j, itemName := range cat.Items {
			item := models.CostItem{
				CategoryID:  category.ID,
				Name:        itemName,
				SortOrder:   j + 1,
				CreatedByID: admin.ID,
			}
			if err := db.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create cost item %q: %w", itemName, err)
			}
		}

		logger.Get().Infof("Created category %s with %d items", cat.Name, len(cat.Items))
	}
	return nil
}
