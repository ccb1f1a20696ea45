package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/shopspring/decimal"
)

// These tests are DB-free: the engine runs against an in-memory ledger.

type fakeMovement struct {
	barId, productId string
	typ              models.MovementType
	qty              decimal.Decimal
	at               time.Time
}

type fakeSale struct {
	shiftId, productId string
	qty                decimal.Decimal
}

type fakeLedger struct {
	barId      string
	shiftId    string
	start      time.Time
	end        *time.Time
	counts     []StockCount
	products   map[string]*ProductSnapshot
	movements  []fakeMovement
	sales      []fakeSale
	stock      map[string]decimal.Decimal
	recons     []*models.Reconciliation
	reports    []*models.LossReport
	failRecons error
}

func newFakeLedger() *fakeLedger {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	return &fakeLedger{
		barId:    "bar-1",
		shiftId:  "shift-1",
		start:    start,
		end:      &end,
		products: map[string]*ProductSnapshot{},
		stock:    map[string]decimal.Decimal{},
	}
}

func (f *fakeLedger) ShiftWindow(_ context.Context, barId, shiftId string) (time.Time, *time.Time, error) {
	if barId != f.barId || shiftId != f.shiftId {
		return time.Time{}, nil, ErrShiftNotInLedger
	}
	return f.start, f.end, nil
}

func (f *fakeLedger) StockCounts(_ context.Context, shiftId string) ([]StockCount, error) {
	return f.counts, nil
}

func (f *fakeLedger) ReceivedQty(_ context.Context, barId, productId string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range f.movements {
		if m.barId != barId || m.productId != productId || m.typ != models.MovementTypeIn {
			continue
		}
		if m.at.Before(from) || m.at.After(to) {
			continue
		}
		total = total.Add(m.qty)
	}
	return total, nil
}

func (f *fakeLedger) SoldQty(_ context.Context, shiftId, productId string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, s := range f.sales {
		if s.shiftId == shiftId && s.productId == productId {
			total = total.Add(s.qty)
		}
	}
	return total, nil
}

func (f *fakeLedger) GetProduct(_ context.Context, barId, productId string) (*ProductSnapshot, error) {
	return f.products[productId], nil
}

func (f *fakeLedger) CreateReconciliation(_ context.Context, r *models.Reconciliation) error {
	if f.failRecons != nil {
		return f.failRecons
	}
	r.ID = "recon-" + r.ProductId
	f.recons = append(f.recons, r)
	return nil
}

func (f *fakeLedger) CreateLossReport(_ context.Context, l *models.LossReport) error {
	l.ID = "loss-" + l.ProductId
	f.reports = append(f.reports, l)
	return nil
}

func (f *fakeLedger) SetProductCurrentStock(_ context.Context, barId, productId string, stock decimal.Decimal) error {
	f.stock[productId] = stock
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func (f *fakeLedger) addProduct(id, cost, threshold string) {
	f.products[id] = &ProductSnapshot{Id: id, CostPrice: d(cost), MinStockThreshold: d(threshold)}
	f.stock[id] = d("999")
}

func newTestReconciler(ledger ReconciliationLedger) *ShiftReconciler {
	r := NewShiftReconciler(ledger, nil, time.UTC)
	r.Now = func() time.Time { return time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC) }
	return r
}

func TestTolerance(t *testing.T) {
	cases := []struct {
		threshold string
		want      string
	}{
		{"0", "0.5"},
		{"5", "0.5"},
		{"4", "0.5"},
		{"6", "0.6"},
		{"50", "5"},
	}
	for _, c := range cases {
		if got := Tolerance(d(c.threshold)); !got.Equal(d(c.want)) {
			t.Fatalf("Tolerance(%s) = %s, want %s", c.threshold, got, c.want)
		}
	}
}

func TestClassifyDiscrepancy_Boundaries(t *testing.T) {
	tau := d("0.5")
	cases := []struct {
		name     string
		d        string
		want     models.LossSeverity
		wantLoss bool
	}{
		{"zero", "0", "", false},
		{"at tolerance", "0.5", "", false},
		{"negative at tolerance", "-0.5", "", false},
		{"just above tolerance", "0.5001", models.LossSeverityInfo, true},
		{"at warning boundary", "0.75", models.LossSeverityInfo, true},
		{"just above warning boundary", "0.7501", models.LossSeverityWarning, true},
		{"at critical boundary", "1.5", models.LossSeverityWarning, true},
		{"just above critical boundary", "1.5001", models.LossSeverityCritical, true},
		{"surplus is classified by magnitude", "-2", models.LossSeverityCritical, true},
	}
	for _, c := range cases {
		got, ok := ClassifyDiscrepancy(d(c.d), tau)
		if ok != c.wantLoss || got != c.want {
			t.Fatalf("%s: ClassifyDiscrepancy(%s) = (%q, %v), want (%q, %v)", c.name, c.d, got, ok, c.want, c.wantLoss)
		}
	}
}

func TestComputeLine_ExactDecimalArithmetic(t *testing.T) {
	line := ComputeLine("p", d("10.1"), d("0.2"), d("0.3"), d("9.9"), ProductSnapshot{CostPrice: d("12.35"), MinStockThreshold: d("5")})
	if !line.ExpectedClosing.Equal(d("10")) {
		t.Fatalf("expected closing = %s, want 10", line.ExpectedClosing)
	}
	if !line.Discrepancy.Equal(d("0.1")) {
		t.Fatalf("discrepancy = %s, want 0.1", line.Discrepancy)
	}
	if line.IsLoss() {
		t.Fatalf("0.1 is within tolerance, got severity %q", line.Severity)
	}
}

func TestRun_ScenarioA_NoLoss(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("rum", "20", "5")
	l.counts = []StockCount{{ProductId: "rum", OpeningCount: d("10"), ClosingCount: dp("12")}}
	l.movements = []fakeMovement{{barId: "bar-1", productId: "rum", typ: models.MovementTypeIn, qty: d("5"), at: l.start.Add(time.Hour)}}
	l.sales = []fakeSale{{shiftId: "shift-1", productId: "rum", qty: d("3")}}

	res, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(l.recons) != 1 || len(l.reports) != 0 {
		t.Fatalf("got %d reconciliations / %d loss reports, want 1 / 0", len(l.recons), len(l.reports))
	}
	r := l.recons[0]
	if !r.ExpectedClosing.Equal(d("12")) || !r.Discrepancy.IsZero() {
		t.Fatalf("expected=%s discrepancy=%s, want 12 / 0", r.ExpectedClosing, r.Discrepancy)
	}
	if !l.stock["rum"].Equal(d("12")) {
		t.Fatalf("current stock = %s, want 12", l.stock["rum"])
	}
	if len(res.SkippedProductIds) != 0 {
		t.Fatalf("unexpected skipped products %v", res.SkippedProductIds)
	}
}

func TestRun_ScenarioB_Critical(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("vodka", "15.50", "5")
	l.counts = []StockCount{{ProductId: "vodka", OpeningCount: d("20"), ClosingCount: dp("8")}}
	l.sales = []fakeSale{{shiftId: "shift-1", productId: "vodka", qty: d("10")}}

	if _, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(l.reports) != 1 {
		t.Fatalf("got %d loss reports, want 1", len(l.reports))
	}
	lr := l.reports[0]
	if lr.Severity != models.LossSeverityCritical {
		t.Fatalf("severity = %s, want CRITICAL", lr.Severity)
	}
	if !lr.DiscrepancyQuantity.Equal(d("2")) || !lr.LossValue.Equal(d("31")) {
		t.Fatalf("qty=%s value=%s, want 2 / 31", lr.DiscrepancyQuantity, lr.LossValue)
	}
	if lr.ReconciliationId != l.recons[0].ID {
		t.Fatalf("loss report linked to %q, want %q", lr.ReconciliationId, l.recons[0].ID)
	}
	if lr.ReasonCode != nil || lr.ReviewedBy != nil {
		t.Fatalf("engine must create unresolved reports")
	}
	if !l.stock["vodka"].Equal(d("8")) {
		t.Fatalf("current stock = %s, want 8", l.stock["vodka"])
	}
}

func TestRun_ScenarioC_Info(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("beer", "2", "50")
	l.counts = []StockCount{{ProductId: "beer", OpeningCount: d("100"), ClosingCount: dp("74")}}
	l.sales = []fakeSale{{shiftId: "shift-1", productId: "beer", qty: d("20")}}

	if _, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(l.reports) != 1 || l.reports[0].Severity != models.LossSeverityInfo {
		t.Fatalf("want one INFO report, got %+v", l.reports)
	}
	if !l.reports[0].LossValue.Equal(d("12")) {
		t.Fatalf("loss value = %s, want 12", l.reports[0].LossValue)
	}
}

func TestRun_ScenarioD_NoClosingCountIsSkipped(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("gin", "10", "5")
	l.addProduct("wine", "10", "5")
	l.counts = []StockCount{
		{ProductId: "gin", OpeningCount: d("5")},
		{ProductId: "wine", OpeningCount: d("5"), ClosingCount: dp("5")},
	}

	if _, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, r := range l.recons {
		if r.ProductId == "gin" {
			t.Fatalf("product without closing count must not be reconciled")
		}
	}
	if !l.stock["gin"].Equal(d("999")) {
		t.Fatalf("stock of uncounted product changed to %s", l.stock["gin"])
	}
	if len(l.recons) != 1 {
		t.Fatalf("got %d reconciliations, want 1", len(l.recons))
	}
}

func TestRun_MissingProductIsSkippedAndReported(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("tequila", "10", "5")
	l.counts = []StockCount{
		{ProductId: "deleted", OpeningCount: d("3"), ClosingCount: dp("1")},
		{ProductId: "tequila", OpeningCount: d("3"), ClosingCount: dp("3")},
	}

	res, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.SkippedProductIds) != 1 || res.SkippedProductIds[0] != "deleted" {
		t.Fatalf("skipped = %v, want [deleted]", res.SkippedProductIds)
	}
	if len(l.recons) != 1 || l.recons[0].ProductId != "tequila" {
		t.Fatalf("remaining products must still be reconciled")
	}
}

func TestRun_ReceivedWindowIsInclusive(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("rum", "1", "5")
	l.counts = []StockCount{{ProductId: "rum", OpeningCount: d("0"), ClosingCount: dp("3")}}
	l.movements = []fakeMovement{
		{barId: "bar-1", productId: "rum", typ: models.MovementTypeIn, qty: d("1"), at: l.start},
		{barId: "bar-1", productId: "rum", typ: models.MovementTypeIn, qty: d("2"), at: *l.end},
		{barId: "bar-1", productId: "rum", typ: models.MovementTypeIn, qty: d("50"), at: l.start.Add(-time.Second)},
		{barId: "bar-1", productId: "rum", typ: models.MovementTypeIn, qty: d("50"), at: l.end.Add(time.Second)},
		{barId: "bar-1", productId: "rum", typ: models.MovementTypeOut, qty: d("50"), at: l.start.Add(time.Hour)},
		{barId: "bar-2", productId: "rum", typ: models.MovementTypeIn, qty: d("50"), at: l.start.Add(time.Hour)},
	}

	if _, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !l.recons[0].Received.Equal(d("3")) {
		t.Fatalf("received = %s, want 3", l.recons[0].Received)
	}
	if len(l.reports) != 0 {
		t.Fatalf("no loss expected, got %d reports", len(l.reports))
	}
}

func TestRun_DateIsRunDateInLocation(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("rum", "1", "5")
	l.counts = []StockCount{{ProductId: "rum", OpeningCount: d("1"), ClosingCount: dp("1")}}

	loc := time.FixedZone("UTC-5", -5*3600)
	r := NewShiftReconciler(l, nil, loc)
	r.Now = func() time.Time { return time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC) }

	res, err := r.Run(context.Background(), "bar-1", "shift-1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !res.Date.Equal(want) || !l.recons[0].Date.Equal(want) {
		t.Fatalf("date = %s, want %s", res.Date, want)
	}
}

func TestRun_PersistenceFailureAborts(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("rum", "1", "5")
	l.counts = []StockCount{{ProductId: "rum", OpeningCount: d("1"), ClosingCount: dp("0")}}
	l.failRecons = errors.New("disk full")

	_, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1")
	if err == nil || !errors.Is(err, l.failRecons) {
		t.Fatalf("want wrapped persistence error, got %v", err)
	}
	if !l.stock["rum"].Equal(d("999")) {
		t.Fatalf("stock must not change after a failed write")
	}
}

func TestRun_OpenShiftIsRejected(t *testing.T) {
	l := newFakeLedger()
	l.end = nil
	if _, err := newTestReconciler(l).Run(context.Background(), "bar-1", "shift-1"); !errors.Is(err, ErrShiftWindowOpen) {
		t.Fatalf("want ErrShiftWindowOpen, got %v", err)
	}
}

func TestCompute_IsRepeatableAndReadOnly(t *testing.T) {
	l := newFakeLedger()
	l.addProduct("vodka", "15.50", "5")
	l.addProduct("beer", "2", "50")
	l.counts = []StockCount{
		{ProductId: "vodka", OpeningCount: d("20"), ClosingCount: dp("8")},
		{ProductId: "beer", OpeningCount: d("100"), ClosingCount: dp("74")},
	}
	l.sales = []fakeSale{
		{shiftId: "shift-1", productId: "vodka", qty: d("10")},
		{shiftId: "shift-1", productId: "beer", qty: d("20")},
	}

	r := newTestReconciler(l)
	first, _, err := r.Compute(context.Background(), "bar-1", "shift-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, _, err := r.Compute(context.Background(), "bar-1", "shift-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("want 2 lines per run, got %d and %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.ProductId != b.ProductId || !a.Discrepancy.Equal(b.Discrepancy) || a.Severity != b.Severity || !a.LossValue.Equal(b.LossValue) {
			t.Fatalf("line %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
	if len(l.recons) != 0 || len(l.reports) != 0 || !l.stock["vodka"].Equal(d("999")) {
		t.Fatalf("compute must not write")
	}
}
