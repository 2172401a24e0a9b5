// Package datastore opens the relational database and owns schema
// migration for the alerting tables.
package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/rateintel/rateintel-go/internal/conf"
	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// Open connects to the configured database and migrates the schema.
func Open(settings conf.DatabaseSettings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch settings.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(settings.Path + "?_foreign_keys=ON")
	case "mysql":
		dialector = mysql.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", settings.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the alerting tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.AlertDefinition{},
		&entities.AlertChange{},
		&entities.Property{},
		&entities.Channel{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate alert tables: %w", err)
	}
	return nil
}
