package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockMovement struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	BarId     string          `gorm:"type:char(36);not null;index:idx_movement_window,priority:1" json:"bar_id"`
	ProductId string          `gorm:"type:char(36);not null;index:idx_movement_window,priority:2" json:"product_id"`
	StaffId   string          `gorm:"type:char(36);not null;index" json:"staff_id"`
	Type      MovementType    `gorm:"size:10;not null;index:idx_movement_window,priority:3" json:"type"`
	Reason    MovementReason  `gorm:"size:20;not null" json:"reason"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Notes     *string         `gorm:"type:text" json:"notes"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index:idx_movement_window,priority:4" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	newId(&m.ID)
	return nil
}

type NewStockMovement struct {
	ProductId string          `json:"product_id" binding:"required"`
	Type      MovementType    `json:"type" binding:"required"`
	Reason    MovementReason  `json:"reason" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes"`
}

func (input *NewStockMovement) validate() error {
	if !input.Type.IsValid() {
		return utils.NewInputError("invalid movement type")
	}
	if !input.Reason.IsValid() {
		return utils.NewInputError("invalid movement reason")
	}
	if !input.Quantity.IsPositive() {
		return utils.NewInputError("quantity must be positive")
	}
	return nil
}

type StockMovementFilter struct {
	ProductId string
	Type      *MovementType
	From      *time.Time
	To        *time.Time
}

// RecordStockMovement stores the movement and applies it to the product's current stock.
// OUT movements may take the stock below zero; the next count corrects it.
func RecordStockMovement(ctx context.Context, db *gorm.DB, input *NewStockMovement) (*StockMovement, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	staffId, _ := utils.GetUserIdFromContext(ctx)
	if err := input.validate(); err != nil {
		return nil, err
	}

	movement := StockMovement{
		BarId:     barId,
		ProductId: input.ProductId,
		StaffId:   staffId,
		Type:      input.Type,
		Reason:    input.Reason,
		Quantity:  input.Quantity,
		Notes:     utils.NilIfEmpty(input.Notes),
	}
	delta := input.Quantity
	if input.Type == MovementTypeOut {
		delta = delta.Neg()
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[Product](ctx, tx, barId, input.ProductId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return err
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		return tx.Model(&Product{}).
			Where("bar_id = ? AND id = ?", barId, input.ProductId).
			Update("current_stock", gorm.Expr("current_stock + ?", delta)).Error
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

func ListStockMovements(ctx context.Context, db *gorm.DB, filter StockMovementFilter, page PageRequest) (*Page[StockMovement], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&StockMovement{}).Where("bar_id = ?", barId)
	if filter.ProductId != "" {
		query = query.Where("product_id = ?", filter.ProductId)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return paginate[StockMovement](query, page, 50, "created_at DESC")
}
