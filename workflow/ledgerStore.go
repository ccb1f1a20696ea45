package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReconciliationLedger reads and writes through the transaction it was built with.
type GormReconciliationLedger struct {
	tx *gorm.DB
}

func NewGormReconciliationLedger(tx *gorm.DB) *GormReconciliationLedger {
	return &GormReconciliationLedger{tx: tx}
}

func (l *GormReconciliationLedger) ShiftWindow(ctx context.Context, barId, shiftId string) (time.Time, *time.Time, error) {
	var shift models.Shift
	err := l.tx.WithContext(ctx).
		Select("id", "start_time", "end_time").
		Where("bar_id = ? AND id = ?", barId, shiftId).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil, ErrShiftNotInLedger
		}
		return time.Time{}, nil, err
	}
	return shift.StartTime, shift.EndTime, nil
}

func (l *GormReconciliationLedger) StockCounts(ctx context.Context, shiftId string) ([]StockCount, error) {
	var rows []*models.ShiftStockCount
	if err := l.tx.WithContext(ctx).
		Where("shift_id = ?", shiftId).
		Order("product_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make([]StockCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, StockCount{
			ProductId:    r.ProductId,
			OpeningCount: r.OpeningCount,
			ClosingCount: r.ClosingCount,
		})
	}
	return counts, nil
}

// ReceivedQty sums IN movements created within [from, to], both ends inclusive.
func (l *GormReconciliationLedger) ReceivedQty(ctx context.Context, barId, productId string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.tx.WithContext(ctx).Model(&models.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("bar_id = ? AND product_id = ? AND type = ?", barId, productId, models.MovementTypeIn).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Scan(&total).Error
	return total, err
}

func (l *GormReconciliationLedger) SoldQty(ctx context.Context, shiftId, productId string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.tx.WithContext(ctx).Model(&models.SalesRecord{}).
		Select("COALESCE(SUM(quantity_sold), 0)").
		Where("shift_id = ? AND product_id = ?", shiftId, productId).
		Scan(&total).Error
	return total, err
}

func (l *GormReconciliationLedger) GetProduct(ctx context.Context, barId, productId string) (*ProductSnapshot, error) {
	var product models.Product
	err := l.tx.WithContext(ctx).
		Select("id", "cost_price", "min_stock_threshold").
		Where("bar_id = ? AND id = ?", barId, productId).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ProductSnapshot{
		Id:                product.ID,
		CostPrice:         product.CostPrice,
		MinStockThreshold: product.MinStockThreshold,
	}, nil
}

func (l *GormReconciliationLedger) CreateReconciliation(ctx context.Context, r *models.Reconciliation) error {
	return l.tx.WithContext(ctx).Create(r).Error
}

func (l *GormReconciliationLedger) CreateLossReport(ctx context.Context, r *models.LossReport) error {
	return l.tx.WithContext(ctx).Create(r).Error
}

func (l *GormReconciliationLedger) SetProductCurrentStock(ctx context.Context, barId, productId string, stock decimal.Decimal) error {
	return l.tx.WithContext(ctx).Model(&models.Product{}).
		Where("bar_id = ? AND id = ?", barId, productId).
		Update("current_stock", stock).Error
}
