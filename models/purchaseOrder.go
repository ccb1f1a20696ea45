package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseOrder struct {
	ID         string               `gorm:"type:char(36);primaryKey" json:"id"`
	BarId      string               `gorm:"type:char(36);not null;index:idx_po_bar_status,priority:1" json:"bar_id"`
	SupplierId string               `gorm:"type:char(36);not null;index" json:"supplier_id"`
	Status     PurchaseOrderStatus  `gorm:"size:20;not null;default:draft;index:idx_po_bar_status,priority:2" json:"status"`
	TotalCost  decimal.Decimal      `gorm:"type:decimal(20,4);not null;default:0" json:"total_cost"`
	Notes      *string              `gorm:"type:text" json:"notes"`
	OrderedAt  *time.Time           `json:"ordered_at"`
	ReceivedAt *time.Time           `json:"received_at"`
	ReceivedBy *string              `gorm:"type:char(36)" json:"received_by"`
	Items      []*PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderId" json:"items"`
	CreatedAt  time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	newId(&po.ID)
	return nil
}

type PurchaseOrderItem struct {
	ID              string          `gorm:"type:char(36);primaryKey" json:"id"`
	PurchaseOrderId string          `gorm:"type:char(36);not null;index" json:"purchase_order_id"`
	ProductId       string          `gorm:"type:char(36);not null;index" json:"product_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_cost"`
}

func (item *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	newId(&item.ID)
	return nil
}

type NewPurchaseOrderItem struct {
	ProductId string          `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type NewPurchaseOrder struct {
	SupplierId string                 `json:"supplier_id" binding:"required"`
	Notes      string                 `json:"notes"`
	Items      []NewPurchaseOrderItem `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderPatch changes notes or moves a draft forward. Receiving goes
// through ReceivePurchaseOrder so stock is updated with the status.
type PurchaseOrderPatch struct {
	Status *PurchaseOrderStatus `json:"status"`
	Notes  *string              `json:"notes"`
}

// buildItems validates the lines and returns them with the order total.
func (input *NewPurchaseOrder) buildItems() ([]*PurchaseOrderItem, decimal.Decimal, error) {
	if len(input.Items) == 0 {
		return nil, decimal.Zero, utils.NewInputError("at least one item is required")
	}
	total := decimal.Zero
	items := make([]*PurchaseOrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		if !line.Quantity.IsPositive() {
			return nil, decimal.Zero, utils.NewInputError(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
		if line.UnitCost.IsNegative() {
			return nil, decimal.Zero, utils.NewInputError(fmt.Sprintf("items[%d]: unit cost cannot be negative", i))
		}
		lineTotal := line.Quantity.Mul(line.UnitCost)
		total = total.Add(lineTotal)
		items = append(items, &PurchaseOrderItem{
			ProductId: line.ProductId,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
			TotalCost: lineTotal,
		})
	}
	return items, total, nil
}

func CreatePurchaseOrder(ctx context.Context, db *gorm.DB, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	items, total, err := input.buildItems()
	if err != nil {
		return nil, err
	}
	productIds := make([]string, 0, len(items))
	for _, item := range items {
		productIds = append(productIds, item.ProductId)
	}

	order := PurchaseOrder{
		BarId:      barId,
		SupplierId: input.SupplierId,
		Status:     PurchaseOrderStatusDraft,
		TotalCost:  total,
		Notes:      utils.NilIfEmpty(input.Notes),
		Items:      items,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourceId[Supplier](ctx, tx, barId, input.SupplierId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("supplier")
			}
			return err
		}
		if err := utils.ValidateResourcesId[Product](ctx, tx, barId, productIds); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return err
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetPurchaseOrder(ctx context.Context, db *gorm.DB, id string) (*PurchaseOrder, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	order, err := utils.FetchModel[PurchaseOrder](ctx, db, barId, id, "Items")
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewNotFoundError("purchase order")
	}
	return order, err
}

func ListPurchaseOrders(ctx context.Context, db *gorm.DB, status *PurchaseOrderStatus, page PageRequest) (*Page[PurchaseOrder], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&PurchaseOrder{}).Preload("Items").Where("bar_id = ?", barId)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	return paginate[PurchaseOrder](query, page, 50, "created_at DESC")
}

// nextPurchaseOrderStatus allows draft -> ordered and draft/ordered -> cancelled.
func nextPurchaseOrderStatus(from, to PurchaseOrderStatus) error {
	if from == to {
		return nil
	}
	switch to {
	case PurchaseOrderStatusOrdered:
		if from == PurchaseOrderStatusDraft {
			return nil
		}
	case PurchaseOrderStatusCancelled:
		if from == PurchaseOrderStatusDraft || from == PurchaseOrderStatusOrdered {
			return nil
		}
	case PurchaseOrderStatusReceived:
		return utils.NewInputError("use the receive endpoint to receive an order")
	}
	return utils.NewInputError(fmt.Sprintf("cannot move a %s order to %s", from, to))
}

func UpdatePurchaseOrder(ctx context.Context, db *gorm.DB, id string, patch *PurchaseOrderPatch) (*PurchaseOrder, error) {
	order, err := GetPurchaseOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	changes := make(map[string]interface{})
	if patch.Status != nil {
		if err := nextPurchaseOrderStatus(order.Status, *patch.Status); err != nil {
			return nil, err
		}
		if *patch.Status != order.Status {
			order.Status = *patch.Status
			changes["status"] = order.Status
			if order.Status == PurchaseOrderStatusOrdered {
				now := time.Now().UTC()
				order.OrderedAt = &now
				changes["ordered_at"] = &now
			}
		}
	}
	if patch.Notes != nil {
		order.Notes = utils.NilIfEmpty(*patch.Notes)
		changes["notes"] = order.Notes
	}
	if len(changes) == 0 {
		return order, nil
	}
	if err := db.WithContext(ctx).Model(&PurchaseOrder{}).
		Where("bar_id = ? AND id = ?", order.BarId, order.ID).
		Updates(changes).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// ReceivePurchaseOrder books every line as an IN/delivery stock movement and
// marks the order received, all in one transaction.
func ReceivePurchaseOrder(ctx context.Context, db *gorm.DB, id string) (*PurchaseOrder, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	staffId, _ := utils.GetUserIdFromContext(ctx)

	var order PurchaseOrder
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("bar_id = ? AND id = ?", barId, id).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError("purchase order")
			}
			return err
		}
		switch order.Status {
		case PurchaseOrderStatusReceived:
			return utils.NewInputError("order already received")
		case PurchaseOrderStatusCancelled:
			return utils.NewInputError("cannot receive a cancelled order")
		}

		note := fmt.Sprintf("PO #%s received", shortId(order.ID))
		for _, item := range order.Items {
			if _, err := RecordStockMovement(ctx, tx, &NewStockMovement{
				ProductId: item.ProductId,
				Type:      MovementTypeIn,
				Reason:    MovementReasonDelivery,
				Quantity:  item.Quantity,
				Notes:     note,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order.Status = PurchaseOrderStatusReceived
		order.ReceivedAt = &now
		order.ReceivedBy = utils.NilIfEmpty(staffId)
		return tx.Model(&PurchaseOrder{}).
			Where("bar_id = ? AND id = ?", barId, order.ID).
			Updates(map[string]interface{}{
				"status":      order.Status,
				"received_at": order.ReceivedAt,
				"received_by": order.ReceivedBy,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
