package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	lossSheetName    = "Loss Reports"
	maxExportRows    = 10000
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

var lossReportHeadings = []string{
	"Date", "Shift", "Product", "Severity", "Discrepancy Qty", "Loss Value", "Reason", "Reviewed At", "Notes",
}

type LossReportRow struct {
	CreatedAt           time.Time
	ShiftId             string
	ProductName         string
	Severity            models.LossSeverity
	DiscrepancyQuantity string
	LossValue           string
	ReasonCode          string
	ReviewedAt          string
	Notes               string
}

func (r *LossReportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.CreatedAt.Format("2006-01-02 15:04"),
		r.ShiftId,
		r.ProductName,
		string(r.Severity),
		r.DiscrepancyQuantity,
		r.LossValue,
		r.ReasonCode,
		r.ReviewedAt,
		r.Notes,
	}
}

func getLossReportRows(ctx context.Context, db *gorm.DB, loc *time.Location, filter models.LossReportFilter) ([]ExcelExporter, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	page, err := models.ListLossReports(ctx, db, filter, models.PageRequest{Page: 1, Limit: maxExportRows})
	if err != nil {
		return nil, err
	}

	productIds := make([]string, 0, len(page.Items))
	for _, r := range page.Items {
		productIds = append(productIds, r.ProductId)
	}
	names := make(map[string]string)
	if len(productIds) > 0 {
		var products []*models.Product
		if err := db.WithContext(ctx).Select("id", "name").
			Where("bar_id = ? AND id IN ?", barId, utils.UniqueSlice(productIds)).
			Find(&products).Error; err != nil {
			return nil, err
		}
		for _, p := range products {
			names[p.ID] = p.Name
		}
	}

	rows := make([]ExcelExporter, 0, len(page.Items))
	for _, r := range page.Items {
		row := &LossReportRow{
			CreatedAt:           r.CreatedAt.In(loc),
			ShiftId:             r.ShiftId,
			ProductName:         names[r.ProductId],
			Severity:            r.Severity,
			DiscrepancyQuantity: r.DiscrepancyQuantity.StringFixed(2),
			LossValue:           r.LossValue.StringFixed(2),
			Notes:               utils.DereferencePtr(r.Notes),
		}
		if r.ReasonCode != nil {
			row.ReasonCode = string(*r.ReasonCode)
		}
		if r.ReviewedAt != nil {
			row.ReviewedAt = r.ReviewedAt.In(loc).Format("2006-01-02 15:04")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportLossReports writes the filtered loss reports of the caller's bar as an xlsx workbook.
func ExportLossReports(ctx context.Context, db *gorm.DB, loc *time.Location, filter models.LossReportFilter, w io.Writer) error {
	if loc == nil {
		loc = time.UTC
	}
	rows, err := getLossReportRows(ctx, db, loc, filter)
	if err != nil {
		return err
	}
	f, err := buildWorkbook(lossSheetName, lossReportHeadings, rows)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildWorkbook(sheetName string, headings []string, data []ExcelExporter) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(headings), 1)
		_ = f.SetCellStyle(sheetName, "A1", lastCell, style)
	}

	for rowIdx, d := range data {
		for colIdx, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}
	return f, nil
}
