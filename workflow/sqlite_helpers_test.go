package workflow

import (
	"strings"
	"testing"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"gorm.io/gorm"
)

// openSQLite returns a migrated in-memory database private to the test. One
// connection keeps the memory database alive for the whole test.
func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Name:         "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}}
	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
