package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/shopspring/decimal"
)

// stock-movement-debug prints a product's stock movements since its last
// counted close with a running balance, so you can see which movement drove
// current_stock negative or away from the counted value.
//
// Example:
//
//	go run ./cmd/stock-movement-debug/ \
//	  -bar-id=a195a02a-ee0c-4047-a6f4-443633d0aca4 \
//	  -product-id=0b7c8f0e-8d0e-4f5e-9a7a-3c1f4c2b9d11
func main() {
	barID := flag.String("bar-id", "", "Required: bar id (uuid)")
	productID := flag.String("product-id", "", "Required: product id (uuid)")
	limit := flag.Int("limit", 500, "Max rows to print (0 = no limit)")
	flag.Parse()

	if strings.TrimSpace(*barID) == "" || strings.TrimSpace(*productID) == "" {
		fmt.Fprintln(os.Stderr, "--bar-id and --product-id are required")
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not initialized: %v\n", err)
		os.Exit(1)
	}

	var product models.Product
	if err := db.Where("bar_id = ? AND id = ?", *barID, *productID).First(&product).Error; err != nil {
		fmt.Fprintf(os.Stderr, "product not found: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("product=%q current_stock=%s min_stock_threshold=%s\n", product.Name, product.CurrentStock, product.MinStockThreshold)

	// the last reconciliation sets current_stock to the counted value
	var last models.Reconciliation
	since := time.Time{}
	base := decimal.Zero
	err = db.Where("bar_id = ? AND product_id = ?", *barID, *productID).
		Order("created_at DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "load last reconciliation: %v\n", err)
		os.Exit(1)
	}
	if last.ID != "" {
		since = last.CreatedAt
		base = last.ActualClosing
		fmt.Printf("last counted close: shift=%s at=%s actual_closing=%s\n", last.ShiftId, since.Format(time.RFC3339), base)
	} else {
		fmt.Println("no counted close yet; running balance starts at 0")
	}

	type row struct {
		ID         string
		CreatedAt  time.Time
		Type       string
		Reason     string
		Quantity   decimal.Decimal
		RunningQty decimal.Decimal
	}
	limitSQL := ""
	if *limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d ", *limit)
	}
	sql := fmt.Sprintf(`
SELECT
  id,
  created_at,
  type,
  reason,
  quantity,
  SUM(CASE WHEN type = 'OUT' THEN -quantity ELSE quantity END) OVER (
    ORDER BY created_at, id
    ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
  ) AS running_qty
FROM stock_movements
WHERE bar_id = ?
  AND product_id = ?
  AND created_at > ?
ORDER BY created_at, id
%s
`, limitSQL)

	var rows []row
	if err := db.Raw(sql, *barID, *productID, since).Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Println("no movements since the last counted close")
		return
	}

	fmt.Printf("rows=%d\n", len(rows))
	var firstNegative *row
	for i, r := range rows {
		balance := base.Add(r.RunningQty)
		fmt.Printf("id=%s at=%s %s qty=%s reason=%s balance=%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Type, r.Quantity, r.Reason, balance)
		if firstNegative == nil && balance.IsNegative() {
			firstNegative = &rows[i]
		}
	}
	if firstNegative != nil {
		fmt.Printf("first negative balance after movement id=%s at=%s\n", firstNegative.ID, firstNegative.CreatedAt.Format(time.RFC3339))
	}
}
