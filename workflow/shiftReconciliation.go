package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("barstock-workflow")

// Severity policy. Not configurable per bar.
var (
	minTolerance        = decimal.RequireFromString("0.5")
	toleranceRatio      = decimal.RequireFromString("0.1")
	warningMultiplier   = decimal.RequireFromString("1.5")
	criticalMultiplier  = decimal.NewFromInt(3)
	ErrShiftWindowOpen  = errors.New("shift has no end time")
	ErrShiftNotInLedger = errors.New("shift not found")
)

// StockCount is one product's opening/closing pair for a shift.
type StockCount struct {
	ProductId    string
	OpeningCount decimal.Decimal
	ClosingCount *decimal.Decimal
}

// ProductSnapshot is the part of a product the engine needs.
type ProductSnapshot struct {
	Id                string
	CostPrice         decimal.Decimal
	MinStockThreshold decimal.Decimal
}

// ReconciliationLedger is everything the engine reads and writes. Implementations
// must be bound to the shift-close transaction.
type ReconciliationLedger interface {
	ShiftWindow(ctx context.Context, barId, shiftId string) (start time.Time, end *time.Time, err error)
	StockCounts(ctx context.Context, shiftId string) ([]StockCount, error)
	ReceivedQty(ctx context.Context, barId, productId string, from, to time.Time) (decimal.Decimal, error)
	SoldQty(ctx context.Context, shiftId, productId string) (decimal.Decimal, error)
	// GetProduct returns (nil, nil) when the product does not exist in the bar.
	GetProduct(ctx context.Context, barId, productId string) (*ProductSnapshot, error)
	CreateReconciliation(ctx context.Context, r *models.Reconciliation) error
	CreateLossReport(ctx context.Context, l *models.LossReport) error
	SetProductCurrentStock(ctx context.Context, barId, productId string, stock decimal.Decimal) error
}

// Tolerance is the discrepancy a product may show before it counts as loss:
// max(0.5, 10% of the product's low-stock threshold).
func Tolerance(minStockThreshold decimal.Decimal) decimal.Decimal {
	t := minStockThreshold.Mul(toleranceRatio)
	if t.LessThan(minTolerance) {
		return minTolerance
	}
	return t
}

// ClassifyDiscrepancy returns the severity of discrepancy d under tolerance tau.
// ok is false when |d| is within tolerance and no loss report is due.
func ClassifyDiscrepancy(d, tau decimal.Decimal) (severity models.LossSeverity, ok bool) {
	abs := d.Abs()
	switch {
	case abs.LessThanOrEqual(tau):
		return "", false
	case abs.GreaterThan(tau.Mul(criticalMultiplier)):
		return models.LossSeverityCritical, true
	case abs.GreaterThan(tau.Mul(warningMultiplier)):
		return models.LossSeverityWarning, true
	default:
		return models.LossSeverityInfo, true
	}
}

// ReconciliationLine is the computed outcome for one product, before persistence.
type ReconciliationLine struct {
	ProductId       string
	OpeningStock    decimal.Decimal
	Received        decimal.Decimal
	Sold            decimal.Decimal
	ExpectedClosing decimal.Decimal
	ActualClosing   decimal.Decimal
	Discrepancy     decimal.Decimal
	Tolerance       decimal.Decimal

	// set only when the discrepancy exceeds tolerance
	Severity  models.LossSeverity
	LossQty   decimal.Decimal
	LossValue decimal.Decimal
}

func (l *ReconciliationLine) IsLoss() bool {
	return l.Severity != ""
}

// ComputeLine applies the reconciliation arithmetic to one product.
func ComputeLine(productId string, opening, received, sold, actual decimal.Decimal, product ProductSnapshot) ReconciliationLine {
	expected := opening.Add(received).Sub(sold)
	d := expected.Sub(actual)
	tau := Tolerance(product.MinStockThreshold)
	line := ReconciliationLine{
		ProductId:       productId,
		OpeningStock:    opening,
		Received:        received,
		Sold:            sold,
		ExpectedClosing: expected,
		ActualClosing:   actual,
		Discrepancy:     d,
		Tolerance:       tau,
	}
	if severity, ok := ClassifyDiscrepancy(d, tau); ok {
		line.Severity = severity
		line.LossQty = d.Abs()
		line.LossValue = line.LossQty.Mul(product.CostPrice)
	}
	return line
}

type ReconciliationResult struct {
	BarId             string
	ShiftId           string
	Date              time.Time
	Lines             []ReconciliationLine
	Reconciliations   []*models.Reconciliation
	LossReports       []*models.LossReport
	SkippedProductIds []string
}

// ShiftReconciler computes and persists the shift-close reconciliation.
// It is stateless; one value may serve many runs.
type ShiftReconciler struct {
	Ledger   ReconciliationLedger
	Logger   *logrus.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewShiftReconciler(ledger ReconciliationLedger, logger *logrus.Logger, loc *time.Location) *ShiftReconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &ShiftReconciler{Ledger: ledger, Logger: logger, Location: loc, Now: time.Now}
}

// runDate is the calendar date of the run in the business location, stored as UTC midnight.
func (r *ShiftReconciler) runDate() time.Time {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	local := now().In(r.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Compute reads the ledgers and returns one line per counted product without writing anything.
func (r *ShiftReconciler) Compute(ctx context.Context, barId, shiftId string) ([]ReconciliationLine, []string, error) {
	start, end, err := r.Ledger.ShiftWindow(ctx, barId, shiftId)
	if err != nil {
		return nil, nil, err
	}
	if end == nil {
		return nil, nil, ErrShiftWindowOpen
	}
	counts, err := r.Ledger.StockCounts(ctx, shiftId)
	if err != nil {
		return nil, nil, fmt.Errorf("load stock counts: %w", err)
	}

	lines := make([]ReconciliationLine, 0, len(counts))
	skipped := make([]string, 0)
	for _, c := range counts {
		if c.ClosingCount == nil {
			continue
		}
		product, err := r.Ledger.GetProduct(ctx, barId, c.ProductId)
		if err != nil {
			return nil, nil, fmt.Errorf("load product %s: %w", c.ProductId, err)
		}
		if product == nil {
			skipped = append(skipped, c.ProductId)
			continue
		}
		received, err := r.Ledger.ReceivedQty(ctx, barId, c.ProductId, start, *end)
		if err != nil {
			return nil, nil, fmt.Errorf("sum received for %s: %w", c.ProductId, err)
		}
		sold, err := r.Ledger.SoldQty(ctx, shiftId, c.ProductId)
		if err != nil {
			return nil, nil, fmt.Errorf("sum sold for %s: %w", c.ProductId, err)
		}
		lines = append(lines, ComputeLine(c.ProductId, c.OpeningCount, received, sold, *c.ClosingCount, *product))
	}
	return lines, skipped, nil
}

// Run reconciles a closed shift: one Reconciliation per counted product, a
// LossReport where the discrepancy exceeds tolerance, and the product's
// current stock set to the counted closing value. Any write error aborts the
// run and must roll back the enclosing transaction.
func (r *ShiftReconciler) Run(ctx context.Context, barId, shiftId string) (result *ReconciliationResult, err error) {
	ctx, span := tracer.Start(ctx, "ShiftReconciler.Run")
	span.SetAttributes(attribute.String("bar_id", barId), attribute.String("shift_id", shiftId))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	lines, skipped, err := r.Compute(ctx, barId, shiftId)
	if err != nil {
		return nil, err
	}

	result = &ReconciliationResult{
		BarId:             barId,
		ShiftId:           shiftId,
		Date:              r.runDate(),
		Lines:             lines,
		Reconciliations:   make([]*models.Reconciliation, 0, len(lines)),
		LossReports:       make([]*models.LossReport, 0),
		SkippedProductIds: skipped,
	}
	for _, line := range lines {
		recon := &models.Reconciliation{
			BarId:           barId,
			ShiftId:         shiftId,
			ProductId:       line.ProductId,
			Date:            result.Date,
			OpeningStock:    line.OpeningStock,
			Received:        line.Received,
			Sold:            line.Sold,
			ExpectedClosing: line.ExpectedClosing,
			ActualClosing:   line.ActualClosing,
			Discrepancy:     line.Discrepancy,
		}
		if err := r.Ledger.CreateReconciliation(ctx, recon); err != nil {
			return nil, fmt.Errorf("create reconciliation for %s: %w", line.ProductId, err)
		}
		result.Reconciliations = append(result.Reconciliations, recon)

		if line.IsLoss() {
			report := &models.LossReport{
				BarId:               barId,
				ReconciliationId:    recon.ID,
				ProductId:           line.ProductId,
				ShiftId:             shiftId,
				DiscrepancyQuantity: line.LossQty,
				LossValue:           line.LossValue,
				Severity:            line.Severity,
			}
			if err := r.Ledger.CreateLossReport(ctx, report); err != nil {
				return nil, fmt.Errorf("create loss report for %s: %w", line.ProductId, err)
			}
			result.LossReports = append(result.LossReports, report)
		}

		if err := r.Ledger.SetProductCurrentStock(ctx, barId, line.ProductId, line.ActualClosing); err != nil {
			return nil, fmt.Errorf("update stock for %s: %w", line.ProductId, err)
		}
	}

	span.SetAttributes(
		attribute.Int("reconciliations", len(result.Reconciliations)),
		attribute.Int("loss_reports", len(result.LossReports)),
		attribute.Int("skipped_products", len(skipped)),
	)
	if r.Logger != nil {
		fields := logrus.Fields{
			"bar_id":          barId,
			"shift_id":        shiftId,
			"reconciliations": len(result.Reconciliations),
			"loss_reports":    len(result.LossReports),
		}
		if len(skipped) > 0 {
			fields["skipped_product_ids"] = skipped
			r.Logger.WithFields(fields).Warn("shift reconciliation skipped missing products")
		} else {
			r.Logger.WithFields(fields).Info("shift reconciliation completed")
		}
	}
	return result, nil
}
