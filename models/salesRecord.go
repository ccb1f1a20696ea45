package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesRecord struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`
	BarId        string          `gorm:"type:char(36);not null;index" json:"bar_id"`
	ProductId    string          `gorm:"type:char(36);not null;index:idx_sales_shift_product,priority:2" json:"product_id"`
	ShiftId      string          `gorm:"type:char(36);not null;index:idx_sales_shift_product,priority:1" json:"shift_id"`
	QuantitySold decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_sold"`
	SaleAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sale_amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (s *SalesRecord) BeforeCreate(tx *gorm.DB) error {
	newId(&s.ID)
	return nil
}

type NewSalesRecord struct {
	ProductId    string          `json:"product_id" binding:"required"`
	ShiftId      string          `json:"shift_id" binding:"required"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	SaleAmount   decimal.Decimal `json:"sale_amount"`
}

type NewSalesRecords struct {
	Records []NewSalesRecord `json:"records" binding:"required,min=1,dive"`
}

// CreateSalesRecords stores a batch of POS sales. Every row must reference a
// product and a shift of the caller's bar, or none are stored.
func CreateSalesRecords(ctx context.Context, db *gorm.DB, input *NewSalesRecords) ([]*SalesRecord, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if len(input.Records) == 0 {
		return nil, utils.NewInputError("at least one sales record is required")
	}

	productIds := make([]string, 0, len(input.Records))
	shiftIds := make([]string, 0, len(input.Records))
	records := make([]*SalesRecord, 0, len(input.Records))
	for i, r := range input.Records {
		if !r.QuantitySold.IsPositive() {
			return nil, utils.NewInputError(fmt.Sprintf("records[%d]: quantity sold must be positive", i))
		}
		if r.SaleAmount.IsNegative() {
			return nil, utils.NewInputError(fmt.Sprintf("records[%d]: sale amount cannot be negative", i))
		}
		productIds = append(productIds, r.ProductId)
		shiftIds = append(shiftIds, r.ShiftId)
		records = append(records, &SalesRecord{
			BarId:        barId,
			ProductId:    r.ProductId,
			ShiftId:      r.ShiftId,
			QuantitySold: r.QuantitySold,
			SaleAmount:   r.SaleAmount,
		})
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourcesId[Product](ctx, tx, barId, productIds); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return err
		}
		if err := utils.ValidateResourcesId[Shift](ctx, tx, barId, shiftIds); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("shift")
			}
			return err
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func ListSalesRecordsByShift(ctx context.Context, db *gorm.DB, shiftId string) ([]*SalesRecord, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	var records []*SalesRecord
	if err := db.WithContext(ctx).
		Where("bar_id = ? AND shift_id = ?", barId, shiftId).
		Order("created_at").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
