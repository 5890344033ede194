package database

import (
	"avroviewer/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

// MigrateModels runs GORM AutoMigrate for every persisted model.
func (db *DB) MigrateModels() error {
	log := logger.New("database").Function("MigrateModels")

	if !db.SQLEnabled() {
		return log.ErrMsg("cannot migrate without a database connection")
	}

	log.Info("Starting database migration")

	modelsToMigrate := []any{
		&models.BatchRecord{},
	}

	for _, model := range modelsToMigrate {
		if err := db.SQL.AutoMigrate(model); err != nil {
			return log.Err("Failed to migrate model", err, "model", model)
		}
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes creates indexes GORM does not derive from struct tags.
func (db *DB) CreateIndexes() error {
	log := logger.New("database").Function("CreateIndexes")
	log.Info("Creating additional database indexes")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_batch_records_created_at ON batch_records(created_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.SQL.Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", "sql", indexSQL, "error", err)
		}
	}

	log.Info("Additional database indexes created")
	return nil
}
