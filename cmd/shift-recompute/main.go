package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/mmdatafocus/barstock_backend/workflow"
)

// Recomputes a closed shift from the current ledgers without writing and
// compares it with the stored reconciliation rows. Exits 2 on any difference.
func main() {
	barID := flag.String("bar-id", "", "Required: bar id (uuid)")
	shiftID := flag.String("shift-id", "", "Required: shift id (uuid)")
	flag.Parse()

	if strings.TrimSpace(*barID) == "" || strings.TrimSpace(*shiftID) == "" {
		fmt.Fprintln(os.Stderr, "--bar-id and --shift-id are required")
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	logger := config.NewLogger(cfg)
	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database not initialized: %v\n", err)
		os.Exit(1)
	}
	ctx := utils.SetBarIdInContext(context.Background(), *barID)

	reconciler := workflow.NewShiftReconciler(workflow.NewGormReconciliationLedger(db), logger, cfg.Location)
	lines, skipped, err := reconciler.Compute(ctx, *barID, *shiftID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute failed: %v\n", err)
		os.Exit(1)
	}
	stored, err := models.ListShiftReconciliations(ctx, db, *barID, *shiftID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load stored reconciliations: %v\n", err)
		os.Exit(1)
	}

	diffs := printComparison(os.Stdout, lines, stored)
	if len(skipped) > 0 {
		fmt.Printf("skipped (product missing): %s\n", strings.Join(skipped, ", "))
	}
	if diffs > 0 {
		fmt.Printf("%d product(s) differ from the stored reconciliation\n", diffs)
		os.Exit(2)
	}
	fmt.Println("stored reconciliation matches the ledgers")
}

// printComparison writes one row per product and returns how many rows differ.
func printComparison(out io.Writer, lines []workflow.ReconciliationLine, stored []*models.Reconciliation) int {
	byProduct := make(map[string]*models.Reconciliation, len(stored))
	for _, r := range stored {
		byProduct[r.ProductId] = r
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tOPENING\tRECEIVED\tSOLD\tEXPECTED\tACTUAL\tDISCREPANCY\tSEVERITY\tSTORED\tMATCH")
	diffs := 0
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		seen[l.ProductId] = true
		storedDiscrepancy := "-"
		match := false
		if r, ok := byProduct[l.ProductId]; ok {
			storedDiscrepancy = r.Discrepancy.String()
			match = r.ExpectedClosing.Equal(l.ExpectedClosing) &&
				r.ActualClosing.Equal(l.ActualClosing) &&
				r.Discrepancy.Equal(l.Discrepancy)
		}
		if !match {
			diffs++
		}
		severity := string(l.Severity)
		if severity == "" {
			severity = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			l.ProductId, l.OpeningStock, l.Received, l.Sold, l.ExpectedClosing,
			l.ActualClosing, l.Discrepancy, severity, storedDiscrepancy, match)
	}
	for _, r := range stored {
		if seen[r.ProductId] {
			continue
		}
		diffs++
		fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t-\t%s\tfalse\n", r.ProductId, r.Discrepancy)
	}
	_ = w.Flush()
	return diffs
}
