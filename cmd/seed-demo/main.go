// seed-demo creates a demo bar with an owner, a manager, a staff member and a
// small spirits/beer catalog for local development.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	ownerEmail   = "owner@demo.bar"
	demoPassword = "demo-password"
)

type demoProduct struct {
	name      string
	category  models.ProductCategory
	unit      models.ProductUnit
	cost      string
	sale      string
	stock     string
	threshold string
}

var catalog = []demoProduct{
	{"House Vodka", models.ProductCategorySpirits, models.ProductUnitBottle, "15.50", "45", "20", "5"},
	{"Dark Rum", models.ProductCategoryRum, models.ProductUnitBottle, "18", "50", "12", "4"},
	{"Draft Lager", models.ProductCategoryBeer, models.ProductUnitPint, "1.20", "5", "120", "50"},
	{"Red Wine", models.ProductCategoryWine, models.ProductUnitBottle, "9", "28", "24", "6"},
	{"Tonic Water", models.ProductCategoryMixers, models.ProductUnitCan, "0.40", "2", "48", "24"},
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not initialized: %v. Set DB_* env vars.\n", err)
		os.Exit(1)
	}
	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	bar, owner, err := models.RegisterOwner(ctx, db, &models.NewOwnerRegistration{
		BarName:  "Demo Bar",
		Email:    ownerEmail,
		Password: demoPassword,
		FullName: "Demo Owner",
	})
	if errors.Is(err, models.ErrEmailTaken) {
		fmt.Println("demo bar already seeded; log in as " + ownerEmail)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "register owner: %v\n", err)
		os.Exit(1)
	}
	ctx = utils.SetBarIdInContext(ctx, bar.ID)
	ctx = utils.SetUserIdInContext(ctx, owner.ID)

	for _, staff := range []models.NewStaff{
		{Email: "manager@demo.bar", Password: demoPassword, FullName: "Demo Manager", Role: models.UserRoleManager},
		{Email: "staff@demo.bar", Password: demoPassword, FullName: "Demo Bartender", Role: models.UserRoleStaff},
	} {
		staff := staff
		if _, err := models.CreateStaff(ctx, db, owner.Role, &staff); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", staff.Email, err)
			os.Exit(1)
		}
	}

	for _, p := range catalog {
		threshold := decimal.RequireFromString(p.threshold)
		if _, err := models.CreateProduct(ctx, db, &models.NewProduct{
			Name:              p.name,
			Category:          p.category,
			Unit:              p.unit,
			CostPrice:         decimal.RequireFromString(p.cost),
			SalePrice:         decimal.RequireFromString(p.sale),
			CurrentStock:      decimal.RequireFromString(p.stock),
			MinStockThreshold: &threshold,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "create product %s: %v\n", p.name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded bar %s; users %s, manager@demo.bar, staff@demo.bar (password %q)\n", bar.ID, ownerEmail, demoPassword)
}
