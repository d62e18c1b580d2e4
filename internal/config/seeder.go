package config

import (
	"log"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
	"liblend/internal/pkg/password"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedSettings(); err != nil {
		return err
	}
	if err := s.seedDepartments(); err != nil {
		log.Printf("⚠️ Department seeder skipped: %v", err)
	}
	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedSettings guarantees the single policy row exists. Every lending
// transaction reads it, so it is not optional.
func (s *Seeder) seedSettings() error {
	var count int64
	s.db.Model(&models.Setting{}).Where("id = ?", models.SettingsID).Count(&count)
	if count > 0 {
		return nil
	}

	setting := &models.Setting{
		ID:                 models.SettingsID,
		MaxLoansPerStudent: 3,
		DefaultLoanDays:    14,
		FinePerDay:         0,
		AllowRenewals:      true,
		MaxRenewals:        1,
	}
	if err := s.db.Create(setting).Error; err != nil {
		return err
	}

	log.Println("✅ Default lending policy created")
	return nil
}

// seedDepartments seeds a starter department list
func (s *Seeder) seedDepartments() error {
	var count int64
	s.db.Model(&models.Department{}).Count(&count)
	if count > 0 {
		return nil
	}

	names := []string{
		"Computer Science",
		"Electrical Engineering",
		"Mechanical Engineering",
		"Business Administration",
	}
	for _, name := range names {
		if err := s.db.Create(&models.Department{Name: name}).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Seeded %d departments", len(names))
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		RegisteredNumber: "ADMIN001",
		FullName:         "System Administrator",
		Email:            "admin@liblend.local",
		Password:         hashedPassword,
		Role:             string(domain.RoleAdmin),
		IsActive:         true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.RegisteredNumber)
	return nil
}
