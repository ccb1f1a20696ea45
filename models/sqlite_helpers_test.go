package models

import (
	"context"
	"strings"
	"testing"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openSQLite returns a migrated in-memory database private to the test.
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
	if err := MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// ownerContext registers a bar and returns a context acting as its owner.
func ownerContext(t *testing.T, db *gorm.DB) (context.Context, *Bar, *User) {
	t.Helper()
	ctx := context.Background()
	bar, owner, err := RegisterOwner(ctx, db, &NewOwnerRegistration{
		BarName:  "Harbour Bar",
		Email:    "owner@harbour.test",
		Password: "password123",
		FullName: "Harbour Owner",
	})
	if err != nil {
		t.Fatalf("RegisterOwner: %v", err)
	}
	ctx = utils.SetBarIdInContext(ctx, bar.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserRoleInContext(ctx, string(owner.Role))
	return ctx, bar, owner
}

func mustProduct(t *testing.T, ctx context.Context, db *gorm.DB, name, stock string) *Product {
	t.Helper()
	p, err := CreateProduct(ctx, db, &NewProduct{
		Name:         name,
		CostPrice:    decimal.NewFromInt(10),
		CurrentStock: decimal.RequireFromString(stock),
	})
	if err != nil {
		t.Fatalf("CreateProduct %s: %v", name, err)
	}
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id string) decimal.Decimal {
	t.Helper()
	var p Product
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.CurrentStock
}
