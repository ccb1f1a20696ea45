package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"gorm.io/gorm"
)

// resetStep deletes one table's rows for the bar. Steps run child before parent.
type resetStep struct {
	name    string
	catalog bool
	count   func(db *gorm.DB, barId string) (int64, error)
	del     func(tx *gorm.DB, barId string) error
}

func byBar(name string, model interface{}, catalog bool) resetStep {
	return resetStep{
		name:    name,
		catalog: catalog,
		count: func(db *gorm.DB, barId string) (int64, error) {
			var n int64
			err := db.Model(model).Where("bar_id = ?", barId).Count(&n).Error
			return n, err
		},
		del: func(tx *gorm.DB, barId string) error {
			return tx.Where("bar_id = ?", barId).Delete(model).Error
		},
	}
}

func resetSteps() []resetStep {
	shiftIds := func(db *gorm.DB, barId string) *gorm.DB {
		return db.Model(&models.Shift{}).Select("id").Where("bar_id = ?", barId)
	}
	return []resetStep{
		byBar("outbox_records", &models.OutboxRecord{}, false),
		byBar("loss_reports", &models.LossReport{}, false),
		byBar("reconciliations", &models.Reconciliation{}, false),
		byBar("sales_records", &models.SalesRecord{}, false),
		byBar("stock_movements", &models.StockMovement{}, false),
		{
			name: "shift_stock_counts",
			count: func(db *gorm.DB, barId string) (int64, error) {
				var n int64
				err := db.Model(&models.ShiftStockCount{}).Where("shift_id IN (?)", shiftIds(db, barId)).Count(&n).Error
				return n, err
			},
			del: func(tx *gorm.DB, barId string) error {
				return tx.Where("shift_id IN (?)", shiftIds(tx, barId)).Delete(&models.ShiftStockCount{}).Error
			},
		},
		byBar("shifts", &models.Shift{}, false),
		byBar("products", &models.Product{}, true),
		byBar("users", &models.User{}, true),
		{
			name:    "bars",
			catalog: true,
			count: func(db *gorm.DB, barId string) (int64, error) {
				var n int64
				err := db.Model(&models.Bar{}).Where("id = ?", barId).Count(&n).Error
				return n, err
			},
			del: func(tx *gorm.DB, barId string) error {
				return tx.Where("id = ?", barId).Delete(&models.Bar{}).Error
			},
		},
	}
}

func main() {
	barID := flag.String("bar-id", "", "Required: bar id (uuid)")
	dryRun := flag.Bool("dry-run", true, "Show counts only (no writes)")
	confirm := flag.String("confirm", "", "Type RESET to proceed when dry-run=false")
	deleteBar := flag.Bool("delete-bar", false, "Also delete products, users and the bar itself")
	flag.Parse()

	if strings.TrimSpace(*barID) == "" {
		fmt.Fprintln(os.Stderr, "--bar-id is required")
		os.Exit(1)
	}
	if !*dryRun && strings.TrimSpace(*confirm) != "RESET" {
		fmt.Fprintln(os.Stderr, "set --confirm=RESET to proceed")
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	logger := config.NewLogger(cfg)
	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not initialized: %v\n", err)
		os.Exit(1)
	}

	var bar models.Bar
	if err := db.Where("id = ?", *barID).First(&bar).Error; err != nil {
		fmt.Fprintf(os.Stderr, "bar not found: %v\n", err)
		os.Exit(1)
	}

	steps := make([]resetStep, 0)
	for _, s := range resetSteps() {
		if s.catalog && !*deleteBar {
			continue
		}
		steps = append(steps, s)
	}

	if *dryRun {
		for _, s := range steps {
			n, err := s.count(db, bar.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", s.name, err)
				continue
			}
			fmt.Printf("%s: %d\n", s.name, n)
		}
		return
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		for _, s := range steps {
			if err := s.del(tx, bar.ID); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
		return nil
	}); err != nil {
		logger.WithError(err).WithField("bar_id", bar.ID).Error("bar reset failed")
		os.Exit(1)
	}

	fmt.Printf("bar %s (%s) reset completed\n", bar.Name, bar.ID)
}
