package reports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

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

func TestLossImprovementPct(t *testing.T) {
	cases := []struct{ prev, cur, want string }{
		{"60", "45", "25"},
		{"30", "40", "-33.3"},
		{"0", "12", "0"},
		{"80", "0", "100"},
	}
	for _, tc := range cases {
		got := lossImprovementPct(decimal.RequireFromString(tc.prev), decimal.RequireFromString(tc.cur))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("improvement(%s -> %s) = %s, want %s", tc.prev, tc.cur, got, tc.want)
		}
	}
}

func TestGetOwnerDashboard_AttributesLossesToShiftStaff(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	bar, owner, err := models.RegisterOwner(ctx, db, &models.NewOwnerRegistration{
		BarName:  "Harbour Bar",
		Email:    "owner@harbour.test",
		Password: "password123",
		FullName: "Harbour Owner",
	})
	if err != nil {
		t.Fatalf("RegisterOwner: %v", err)
	}
	ctx = utils.SetBarIdInContext(ctx, bar.ID)

	staff := func(name string) *models.User {
		u := &models.User{BarId: bar.ID, Email: strings.ToLower(name) + "@harbour.test", PasswordHash: "x", FullName: name, Role: models.UserRoleStaff}
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		return u
	}
	ana, ben := staff("Ana"), staff("Ben")

	now := time.Now().UTC()
	shift := func(u *models.User) string {
		s := &models.Shift{BarId: bar.ID, StaffId: u.ID, StartTime: now.Add(-48 * time.Hour), Status: models.ShiftStatusClosed}
		if err := db.Create(s).Error; err != nil {
			t.Fatalf("seed shift: %v", err)
		}
		return s.ID
	}
	anaShift, benShift := shift(ana), shift(ben)

	n := 0
	loss := func(shiftId, value string, at time.Time) {
		n++
		r := &models.LossReport{
			BarId:               bar.ID,
			ReconciliationId:    "recon-" + string(rune('a'+n)),
			ProductId:           "p1",
			ShiftId:             shiftId,
			DiscrepancyQuantity: decimal.NewFromInt(1),
			LossValue:           decimal.RequireFromString(value),
			Severity:            models.LossSeverityWarning,
			CreatedAt:           at,
		}
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed loss: %v", err)
		}
	}
	loss(anaShift, "10", now.Add(-time.Hour))
	loss(anaShift, "5", now.Add(-2*time.Hour))
	loss(benShift, "30", now.Add(-3*time.Hour))
	loss(anaShift, "60", now.AddDate(0, 0, -40))
	loss(benShift, "999", now.AddDate(0, 0, -90))

	sale := &models.SalesRecord{BarId: bar.ID, ShiftId: anaShift, ProductId: "p1", QuantitySold: decimal.NewFromInt(5), SaleAmount: decimal.NewFromInt(100)}
	if err := db.Create(sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	product := &models.Product{BarId: bar.ID, Name: "Gin", CostPrice: decimal.NewFromInt(10), CurrentStock: decimal.NewFromInt(2), IsActive: utils.NewTrue()}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	dash, err := GetOwnerDashboard(ctx, db, nil)
	if err != nil {
		t.Fatalf("GetOwnerDashboard: %v", err)
	}
	fin := dash.Financials
	if !fin.CurrentMonthLosses.Equal(decimal.NewFromInt(45)) || !fin.PreviousMonthLosses.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("losses = %s / %s, want 45 / 60", fin.CurrentMonthLosses, fin.PreviousMonthLosses)
	}
	if !fin.LossImprovementPct.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("improvement = %s, want 25", fin.LossImprovementPct)
	}
	if !fin.CurrentMonthRevenue.Equal(decimal.NewFromInt(100)) || !fin.TotalStockValue.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("revenue = %s stock value = %s", fin.CurrentMonthRevenue, fin.TotalStockValue)
	}

	got := dash.StaffPerformance
	if len(got) != 3 {
		t.Fatalf("staff rows = %d, want 3", len(got))
	}
	if got[0].Id != ben.ID || got[0].LossIncidents != 1 || !got[0].TotalLossValue.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("first = %+v, want Ben 1 x 30", got[0])
	}
	if got[1].Id != ana.ID || got[1].LossIncidents != 2 || !got[1].TotalLossValue.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("second = %+v, want Ana 2 x 15", got[1])
	}
	if got[2].Id != owner.ID || got[2].LossIncidents != 0 || !got[2].TotalLossValue.IsZero() || got[2].Role != models.UserRoleOwner {
		t.Fatalf("third = %+v, want owner with no losses", got[2])
	}
}
