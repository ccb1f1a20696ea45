package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestPrintComparison(t *testing.T) {
	n := decimal.NewFromInt
	lines := []workflow.ReconciliationLine{
		workflow.ComputeLine("vodka", n(20), n(0), n(10), n(8), workflow.ProductSnapshot{CostPrice: n(15), MinStockThreshold: n(5)}),
		workflow.ComputeLine("rum", n(10), n(5), n(3), n(12), workflow.ProductSnapshot{CostPrice: n(20), MinStockThreshold: n(5)}),
	}
	stored := []*models.Reconciliation{
		{ProductId: "vodka", ExpectedClosing: n(10), ActualClosing: n(8), Discrepancy: n(2)},
		// a later IN movement inside the window changed the recomputed value
		{ProductId: "rum", ExpectedClosing: n(11), ActualClosing: n(12), Discrepancy: n(-1)},
		{ProductId: "gin", ExpectedClosing: n(1), ActualClosing: n(1), Discrepancy: n(0)},
	}

	var buf bytes.Buffer
	if diffs := printComparison(&buf, lines, stored); diffs != 2 {
		t.Fatalf("diffs = %d, want 2\n%s", diffs, buf.String())
	}
	out := buf.String()
	if !strings.Contains(out, "CRITICAL") || !strings.Contains(out, "gin") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
