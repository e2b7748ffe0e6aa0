package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/discussion"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// TranslateError is enabled so unique-constraint violations surface as
// gorm.ErrDuplicatedKey to the coordinator.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Migrate applies the schema and the named data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(
		&users.User{},
		&inventory.Inventory{},
		&inventory.FieldDefinition{},
		&inventory.Item{},
		&inventory.FieldValue{},
		&inventory.AccessGrant{},
		&inventory.ItemLike{},
		&inventory.Tag{},
		&inventory.InventoryTag{},
		&customid.Sequence{},
		&discussion.Post{},
		&migrationRecord{},
	); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
