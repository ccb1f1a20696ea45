package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// SalesImportRow is one line of a POS export: product_name, quantity_sold, sale_amount.
type SalesImportRow struct {
	ProductName  string `csv:"product_name"`
	QuantitySold string `csv:"quantity_sold"`
	SaleAmount   string `csv:"sale_amount"`
}

type SalesImportResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// ParseSalesImport reads .csv or .xlsx (first sheet) rows with a header line.
func ParseSalesImport(filename string, r io.Reader) ([]*SalesImportRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		var rows []*SalesImportRow
		if err := gocsv.Unmarshal(r, &rows); err != nil {
			return nil, utils.NewInputError("unable to read csv: " + err.Error())
		}
		return rows, nil
	case ".xlsx":
		return parseSalesXlsx(r)
	}
	return nil, utils.NewInputError("invalid file type: only .csv and .xlsx files are allowed")
}

func parseSalesXlsx(r io.Reader) ([]*SalesImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewInputError("unable to open excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, utils.NewInputError("excel file has no sheets")
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, utils.NewInputError("unable to read sheet: " + err.Error())
	}
	if len(grid) == 0 {
		return nil, nil
	}

	col := make(map[string]int)
	for i, h := range grid[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	rows := make([]*SalesImportRow, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rows = append(rows, &SalesImportRow{
			ProductName:  cell(row, "product_name"),
			QuantitySold: cell(row, "quantity_sold"),
			SaleAmount:   cell(row, "sale_amount"),
		})
	}
	return rows, nil
}

// ImportSalesRecords stores the rows against shiftId, matching products by
// name without case. Bad rows are reported by spreadsheet row number and skipped.
func ImportSalesRecords(ctx context.Context, db *gorm.DB, shiftId string, rows []*SalesImportRow) (*SalesImportResult, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Shift](ctx, db, barId, shiftId); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewNotFoundError("shift")
		}
		return nil, err
	}

	var products []*Product
	if err := db.WithContext(ctx).Select("id", "name").Where("bar_id = ?", barId).Find(&products).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(products))
	for _, p := range products {
		byName[strings.ToLower(strings.TrimSpace(p.Name))] = p.ID
	}

	result := &SalesImportResult{Errors: make([]string, 0)}
	records := make([]*SalesRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		name := strings.TrimSpace(row.ProductName)
		productId, ok := byName[strings.ToLower(name)]
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: product '%s' not found", line, name))
			continue
		}
		qty, err := utils.ParseDecimal(row.QuantitySold)
		if err != nil || !qty.IsPositive() {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: quantity sold must be a positive number", line))
			continue
		}
		amount := decimal.Zero
		if strings.TrimSpace(row.SaleAmount) != "" {
			amount, err = utils.ParseDecimal(row.SaleAmount)
		}
		if err != nil || amount.IsNegative() {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: sale amount must be zero or more", line))
			continue
		}
		records = append(records, &SalesRecord{
			BarId:        barId,
			ProductId:    productId,
			ShiftId:      shiftId,
			QuantitySold: qty,
			SaleAmount:   amount,
		})
	}

	if len(records) > 0 {
		if err := db.WithContext(ctx).Create(&records).Error; err != nil {
			return nil, err
		}
	}
	result.Created = len(records)
	return result, nil
}
