package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
)

func TestNextPurchaseOrderStatus(t *testing.T) {
	cases := []struct {
		from, to PurchaseOrderStatus
		ok       bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusOrdered, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusOrdered, true},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusOrdered, PurchaseOrderStatusReceived, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusOrdered, false},
	}
	for _, tc := range cases {
		err := nextPurchaseOrderStatus(tc.from, tc.to)
		if (err == nil) != tc.ok {
			t.Fatalf("%s -> %s: err = %v, want ok=%v", tc.from, tc.to, err, tc.ok)
		}
		if err != nil && !errors.Is(err, utils.ErrorInvalidInput) {
			t.Fatalf("%s -> %s: want input error, got %v", tc.from, tc.to, err)
		}
	}
}

func TestNewPurchaseOrder_BuildItems(t *testing.T) {
	input := &NewPurchaseOrder{Items: []NewPurchaseOrderItem{
		{ProductId: "p1", Quantity: decimal.NewFromInt(12), UnitCost: decimal.RequireFromString("2.5")},
		{ProductId: "p2", Quantity: decimal.RequireFromString("1.5"), UnitCost: decimal.NewFromInt(20)},
	}}
	items, total, err := input.buildItems()
	if err != nil {
		t.Fatalf("buildItems: %v", err)
	}
	if len(items) != 2 || !items[0].TotalCost.Equal(decimal.NewFromInt(30)) || !total.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("items = %+v total = %s", items, total)
	}

	bad := &NewPurchaseOrder{Items: []NewPurchaseOrderItem{{ProductId: "p1", Quantity: decimal.Zero}}}
	if _, _, err := bad.buildItems(); err == nil || !strings.Contains(err.Error(), "items[0]") {
		t.Fatalf("zero quantity: err = %v", err)
	}
}

func TestReceivePurchaseOrder_BooksDeliveries(t *testing.T) {
	db := openSQLite(t)
	ctx, bar, owner := ownerContext(t, db)
	gin := mustProduct(t, ctx, db, "Gin", "3")
	tonic := mustProduct(t, ctx, db, "Tonic", "0")

	supplier, err := CreateSupplier(ctx, db, &NewSupplier{Name: "Harbour Wholesale"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	order, err := CreatePurchaseOrder(ctx, db, &NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items: []NewPurchaseOrderItem{
			{ProductId: gin.ID, Quantity: decimal.NewFromInt(6), UnitCost: decimal.NewFromInt(15)},
			{ProductId: tonic.ID, Quantity: decimal.RequireFromString("24"), UnitCost: decimal.NewFromInt(1)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if order.Status != PurchaseOrderStatusDraft || !order.TotalCost.Equal(decimal.NewFromInt(114)) {
		t.Fatalf("new order = %+v", order)
	}
	ordered := PurchaseOrderStatusOrdered
	if order, err = UpdatePurchaseOrder(ctx, db, order.ID, &PurchaseOrderPatch{Status: &ordered}); err != nil || order.OrderedAt == nil {
		t.Fatalf("mark ordered: %+v, %v", order, err)
	}

	received, err := ReceivePurchaseOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("ReceivePurchaseOrder: %v", err)
	}
	if received.Status != PurchaseOrderStatusReceived || received.ReceivedAt == nil || received.ReceivedBy == nil || *received.ReceivedBy != owner.ID {
		t.Fatalf("received order = %+v", received)
	}

	if got := stockOf(t, db, gin.ID); !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("gin stock = %s, want 9", got)
	}
	if got := stockOf(t, db, tonic.ID); !got.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("tonic stock = %s, want 24", got)
	}

	var movements []*StockMovement
	if err := db.Where("bar_id = ?", bar.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("movements = %d, want 2", len(movements))
	}
	for _, m := range movements {
		if m.Type != MovementTypeIn || m.Reason != MovementReasonDelivery || m.StaffId != owner.ID {
			t.Fatalf("movement = %+v", m)
		}
		if m.Notes == nil || *m.Notes != "PO #"+order.ID[:8]+" received" {
			t.Fatalf("movement notes = %v", m.Notes)
		}
	}

	if _, err := ReceivePurchaseOrder(ctx, db, order.ID); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("second receive: err = %v, want input error", err)
	}
	if got := stockOf(t, db, gin.ID); !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("gin stock after second receive = %s, want 9", got)
	}

	if err := DeleteSupplier(ctx, db, supplier.ID); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("delete supplier with orders: err = %v", err)
	}
}

func TestReceivePurchaseOrder_RollsBackOnBadLine(t *testing.T) {
	db := openSQLite(t)
	ctx, bar, _ := ownerContext(t, db)
	gin := mustProduct(t, ctx, db, "Gin", "3")
	gone := mustProduct(t, ctx, db, "Discontinued", "0")

	supplier, err := CreateSupplier(ctx, db, &NewSupplier{Name: "Harbour Wholesale"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	order, err := CreatePurchaseOrder(ctx, db, &NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items: []NewPurchaseOrderItem{
			{ProductId: gin.ID, Quantity: decimal.NewFromInt(6), UnitCost: decimal.NewFromInt(15)},
			{ProductId: gone.ID, Quantity: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if err := db.Where("id = ?", gone.ID).Delete(&Product{}).Error; err != nil {
		t.Fatalf("delete product: %v", err)
	}

	if _, err := ReceivePurchaseOrder(ctx, db, order.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("receive with missing product: err = %v, want not found", err)
	}
	if got := stockOf(t, db, gin.ID); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("gin stock = %s, want 3 after rollback", got)
	}
	var count int64
	db.Model(&StockMovement{}).Where("bar_id = ?", bar.ID).Count(&count)
	if count != 0 {
		t.Fatalf("movements after rollback = %d, want 0", count)
	}
	reloaded, err := GetPurchaseOrder(ctx, db, order.ID)
	if err != nil || reloaded.Status != PurchaseOrderStatusDraft || reloaded.ReceivedAt != nil {
		t.Fatalf("order after rollback = %+v, %v", reloaded, err)
	}
}

func TestReceivePurchaseOrder_RejectsCancelledAndMissing(t *testing.T) {
	db := openSQLite(t)
	ctx, _, _ := ownerContext(t, db)
	gin := mustProduct(t, ctx, db, "Gin", "3")
	supplier, err := CreateSupplier(ctx, db, &NewSupplier{Name: "Harbour Wholesale"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	order, err := CreatePurchaseOrder(ctx, db, &NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items:      []NewPurchaseOrderItem{{ProductId: gin.ID, Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(15)}},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	cancelled := PurchaseOrderStatusCancelled
	if _, err := UpdatePurchaseOrder(ctx, db, order.ID, &PurchaseOrderPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := ReceivePurchaseOrder(ctx, db, order.ID); err == nil || err.Error() != "cannot receive a cancelled order" {
		t.Fatalf("receive cancelled: err = %v", err)
	}
	if _, err := ReceivePurchaseOrder(ctx, db, "missing"); err == nil || err.Error() != "purchase order not found" {
		t.Fatalf("receive missing: err = %v", err)
	}
	if _, err := CreatePurchaseOrder(ctx, db, &NewPurchaseOrder{
		SupplierId: "missing",
		Items:      []NewPurchaseOrderItem{{ProductId: gin.ID, Quantity: decimal.NewFromInt(1)}},
	}); err == nil || err.Error() != "supplier not found" {
		t.Fatalf("unknown supplier: err = %v", err)
	}
}
