package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reconciliation is the immutable per-product result of a shift close.
type Reconciliation struct {
	ID              string          `gorm:"type:char(36);primaryKey" json:"id"`
	BarId           string          `gorm:"type:char(36);not null;index:idx_recon_bar_date,priority:1" json:"bar_id"`
	ShiftId         string          `gorm:"type:char(36);not null;index" json:"shift_id"`
	ProductId       string          `gorm:"type:char(36);not null;index" json:"product_id"`
	Date            time.Time       `gorm:"type:date;not null;index:idx_recon_bar_date,priority:2" json:"date"`
	OpeningStock    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"opening_stock"`
	Received        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"received"`
	Sold            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sold"`
	ExpectedClosing decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"expected_closing"`
	ActualClosing   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"actual_closing"`
	Discrepancy     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discrepancy"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Reconciliation) BeforeCreate(tx *gorm.DB) error {
	newId(&r.ID)
	return nil
}

type ReconciliationFilter struct {
	ShiftId   string
	ProductId string
	From      *time.Time
	To        *time.Time
}

func ListReconciliations(ctx context.Context, db *gorm.DB, filter ReconciliationFilter, page PageRequest) (*Page[Reconciliation], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&Reconciliation{}).Where("bar_id = ?", barId)
	if filter.ShiftId != "" {
		query = query.Where("shift_id = ?", filter.ShiftId)
	}
	if filter.ProductId != "" {
		query = query.Where("product_id = ?", filter.ProductId)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	return paginate[Reconciliation](query, page, 50, "date DESC, created_at DESC")
}

// ListShiftReconciliations returns every stored row of one shift.
func ListShiftReconciliations(ctx context.Context, db *gorm.DB, barId, shiftId string) ([]*Reconciliation, error) {
	var rows []*Reconciliation
	if err := db.WithContext(ctx).
		Where("bar_id = ? AND shift_id = ?", barId, shiftId).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
