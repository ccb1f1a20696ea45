package models

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Bar{}, &User{},
		&Product{},
		&StockMovement{}, &SalesRecord{},
		&Shift{}, &ShiftStockCount{},
		&Reconciliation{}, &LossReport{},
		&Supplier{}, &PurchaseOrder{}, &PurchaseOrderItem{},
		&OutboxRecord{},
	)
}
