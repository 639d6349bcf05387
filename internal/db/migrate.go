package db

import (
	"errors"
	"fmt"

	"ctn_registry/internal/auth"
	"ctn_registry/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	models := []interface{}{
		&model.User{},
		&model.LegalEntity{},
		&model.Contact{},
		&model.Endpoint{},
		&model.AccessRequest{},
		&model.ConsumerGrant{},
		&model.AuditEvent{},
		&model.WSEvent{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logrus.WithField("tables", len(models)).Info("database migration completed")
	return nil
}

// SeedAdmin creates the initial SystemAdmin account when no user with that
// email exists yet. Used on first boot so the portal is reachable.
func SeedAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if err := auth.ValidatePassword(password); err != nil {
		return fmt.Errorf("admin seed rejected: %w", err)
	}

	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user := model.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        model.RoleSystemAdmin,
		Status:       model.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logrus.WithField("email", email).Info("seeded initial admin user")
	return nil
}
