package database

import (
	"errors"
	"time"

	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillEntityVersions = "2026-05-18_backfill_entity_versions"
	migrationSeedSequenceRows       = "2026-06-02_seed_missing_sequence_rows"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillEntityVersions, apply: backfillEntityVersions},
		{name: migrationSeedSequenceRows, apply: seedMissingSequenceRows},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillEntityVersions repairs rows imported before version counters were
// mandatory: a zero version would make every optimistic check fail.
func backfillEntityVersions(db *gorm.DB) error {
	if err := db.Model(&inventory.Inventory{}).
		Where("version < 1").
		Update("version", 1).Error; err != nil {
		return err
	}
	return db.Model(&inventory.Item{}).
		Where("version < 1").
		Update("version", 1).Error
}

// seedMissingSequenceRows normalizes counters that were deleted out of band
// while their template survived on an older schema.
func seedMissingSequenceRows(db *gorm.DB) error {
	return db.Model(&customid.Sequence{}).
		Where("next_value < 1").
		Update("next_value", 1).Error
}
