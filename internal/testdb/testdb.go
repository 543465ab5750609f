// Package testdb opens throwaway in-memory databases for service and
// repository tests, migrated to the same schema the server runs.
package testdb

import (
	"testing"

	"press-release-admin-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database. The pool is pinned to a single
// connection because every sqlite :memory: connection is its own database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access underlying pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.Release{},
		&models.CategoryUsage{},
		&models.UploadLedger{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
