package models

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestParseSalesImport_CSV(t *testing.T) {
	csv := "product_name,quantity_sold,sale_amount\nGin,4,48\n Tonic ,1.5,\n"
	rows, err := ParseSalesImport("pos-export.CSV", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseSalesImport: %v", err)
	}
	if len(rows) != 2 || rows[0].ProductName != "Gin" || rows[0].QuantitySold != "4" || rows[1].SaleAmount != "" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseSalesImport_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"sale_amount", "product_name", "quantity_sold"})
	_ = f.SetSheetRow(sheet, "A2", &[]interface{}{"48", "Gin", "4"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	rows, err := ParseSalesImport("pos.xlsx", &buf)
	if err != nil {
		t.Fatalf("ParseSalesImport: %v", err)
	}
	if len(rows) != 1 || rows[0].ProductName != "Gin" || rows[0].QuantitySold != "4" || rows[0].SaleAmount != "48" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseSalesImport_RejectsOtherFiles(t *testing.T) {
	if _, err := ParseSalesImport("sales.pdf", strings.NewReader("x")); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("err = %v, want input error", err)
	}
}

func TestImportSalesRecords_TagsShiftAndReportsBadRows(t *testing.T) {
	db := openSQLite(t)
	ctx, bar, owner := ownerContext(t, db)
	gin := mustProduct(t, ctx, db, "Gin", "10")
	tonic := mustProduct(t, ctx, db, "Tonic", "10")

	shift := Shift{BarId: bar.ID, StaffId: owner.ID, StartTime: time.Now().UTC(), Status: ShiftStatusOpen}
	if err := db.Create(&shift).Error; err != nil {
		t.Fatalf("seed shift: %v", err)
	}

	rows := []*SalesImportRow{
		{ProductName: "gin", QuantitySold: "4", SaleAmount: "48"},
		{ProductName: "Tonic", QuantitySold: "1.5"},
		{ProductName: "Vodka", QuantitySold: "1", SaleAmount: "10"},
		{ProductName: "Gin", QuantitySold: "0", SaleAmount: "0"},
		{ProductName: "Gin", QuantitySold: "2", SaleAmount: "-1"},
	}
	result, err := ImportSalesRecords(ctx, db, shift.ID, rows)
	if err != nil {
		t.Fatalf("ImportSalesRecords: %v", err)
	}
	if result.Created != 2 || len(result.Errors) != 3 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0] != "Row 4: product 'Vodka' not found" || !strings.HasPrefix(result.Errors[1], "Row 5:") || !strings.HasPrefix(result.Errors[2], "Row 6:") {
		t.Fatalf("errors = %v", result.Errors)
	}

	records, err := ListSalesRecordsByShift(ctx, db, shift.ID)
	if err != nil {
		t.Fatalf("ListSalesRecordsByShift: %v", err)
	}
	sold := map[string]decimal.Decimal{}
	for _, r := range records {
		sold[r.ProductId] = sold[r.ProductId].Add(r.QuantitySold)
	}
	if len(records) != 2 || !sold[gin.ID].Equal(decimal.NewFromInt(4)) || !sold[tonic.ID].Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("records = %+v", records)
	}

	if _, err := ImportSalesRecords(ctx, db, "missing", rows); err == nil || err.Error() != "shift not found" {
		t.Fatalf("unknown shift: err = %v", err)
	}
}
