package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"gorm.io/gorm"
)

type Supplier struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	BarId         string    `gorm:"type:char(36);not null;index" json:"bar_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	ContactPerson *string   `gorm:"size:255" json:"contact_person"`
	Phone         *string   `gorm:"size:20" json:"phone"`
	Email         *string   `gorm:"size:255" json:"email"`
	Address       *string   `gorm:"type:text" json:"address"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	newId(&s.ID)
	return nil
}

type NewSupplier struct {
	Name          string `json:"name" binding:"required,max=255"`
	ContactPerson string `json:"contact_person" binding:"omitempty,max=255"`
	Phone         string `json:"phone" binding:"omitempty,max=20"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

func (input *NewSupplier) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewInputError("supplier name is required")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, ""); err != nil {
			return err
		}
	}
	return nil
}

type SupplierPatch struct {
	Name          *string `json:"name" binding:"omitempty,max=255"`
	ContactPerson *string `json:"contact_person" binding:"omitempty,max=255"`
	Phone         *string `json:"phone" binding:"omitempty,max=20"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
}

func (patch *SupplierPatch) apply(s *Supplier) (map[string]interface{}, error) {
	changes := make(map[string]interface{})
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, utils.NewInputError("supplier name is required")
		}
		s.Name = name
		changes["name"] = name
	}
	if patch.ContactPerson != nil {
		s.ContactPerson = utils.NilIfEmpty(strings.TrimSpace(*patch.ContactPerson))
		changes["contact_person"] = s.ContactPerson
	}
	if patch.Phone != nil {
		if *patch.Phone != "" {
			if err := utils.ValidatePhoneNumber(*patch.Phone, ""); err != nil {
				return nil, err
			}
		}
		s.Phone = utils.NilIfEmpty(*patch.Phone)
		changes["phone"] = s.Phone
	}
	if patch.Email != nil {
		s.Email = utils.NilIfEmpty(normalizeEmail(*patch.Email))
		changes["email"] = s.Email
	}
	if patch.Address != nil {
		s.Address = utils.NilIfEmpty(*patch.Address)
		changes["address"] = s.Address
	}
	return changes, nil
}

func CreateSupplier(ctx context.Context, db *gorm.DB, input *NewSupplier) (*Supplier, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	supplier := Supplier{
		BarId:         barId,
		Name:          strings.TrimSpace(input.Name),
		ContactPerson: utils.NilIfEmpty(strings.TrimSpace(input.ContactPerson)),
		Phone:         utils.NilIfEmpty(input.Phone),
		Email:         utils.NilIfEmpty(normalizeEmail(input.Email)),
		Address:       utils.NilIfEmpty(input.Address),
	}
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func GetSupplier(ctx context.Context, db *gorm.DB, id string) (*Supplier, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	supplier, err := utils.FetchModel[Supplier](ctx, db, barId, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewNotFoundError("supplier")
	}
	return supplier, err
}

func ListSuppliers(ctx context.Context, db *gorm.DB) ([]*Supplier, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	var suppliers []*Supplier
	if err := db.WithContext(ctx).Where("bar_id = ?", barId).Order("name").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func UpdateSupplier(ctx context.Context, db *gorm.DB, id string, patch *SupplierPatch) (*Supplier, error) {
	supplier, err := GetSupplier(ctx, db, id)
	if err != nil {
		return nil, err
	}
	changes, err := patch.apply(supplier)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return supplier, nil
	}
	if err := db.WithContext(ctx).Model(supplier).Updates(changes).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

// DeleteSupplier refuses suppliers that still have purchase orders.
func DeleteSupplier(ctx context.Context, db *gorm.DB, id string) error {
	supplier, err := GetSupplier(ctx, db, id)
	if err != nil {
		return err
	}
	count, err := utils.ResourceCountWhere[PurchaseOrder](ctx, db, supplier.BarId, "supplier_id = ?", supplier.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return utils.NewInputError("supplier has purchase orders")
	}
	return db.WithContext(ctx).Where("bar_id = ? AND id = ?", supplier.BarId, supplier.ID).Delete(&Supplier{}).Error
}
