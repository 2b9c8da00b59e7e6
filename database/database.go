package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mailforge/internal/domain/beta"
	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
)

// Connect opens the Postgres pool. Query logging is left to gorm's own
// logger at warn level so slow queries still surface.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database: DB_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	return db, nil
}

// Migrate auto-migrates every persisted domain model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// accounts
		&users.User{},
		&users.VerificationToken{},

		// billing
		&plans.Plan{},
		&billing.Payment{},

		// beta
		&beta.Code{},
		&beta.Registration{},
	); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}
