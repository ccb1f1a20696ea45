package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var DefaultMinStockThreshold = decimal.NewFromInt(5)

type Product struct {
	ID                string          `gorm:"type:char(36);primaryKey" json:"id"`
	BarId             string          `gorm:"type:char(36);not null;index" json:"bar_id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Category          ProductCategory `gorm:"size:20;not null;default:other" json:"category"`
	Unit              ProductUnit     `gorm:"size:20;not null;default:bottle" json:"unit"`
	VolumeMl          *int            `json:"volume_ml"`
	CostPrice         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost_price"`
	SalePrice         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sale_price"`
	CurrentStock      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_stock"`
	MinStockThreshold decimal.Decimal `gorm:"type:decimal(20,4);not null;default:5" json:"min_stock_threshold"`
	ImageUrl          *string         `gorm:"size:500" json:"image_url"`
	Description       *string         `gorm:"type:text" json:"description"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	newId(&p.ID)
	return nil
}

type NewProduct struct {
	Name              string           `json:"name" binding:"required,max=255"`
	Category          ProductCategory  `json:"category"`
	Unit              ProductUnit      `json:"unit"`
	VolumeMl          *int             `json:"volume_ml" binding:"omitempty,gt=0"`
	CostPrice         decimal.Decimal  `json:"cost_price"`
	SalePrice         decimal.Decimal  `json:"sale_price"`
	CurrentStock      decimal.Decimal  `json:"current_stock"`
	MinStockThreshold *decimal.Decimal `json:"min_stock_threshold"`
	ImageUrl          string           `json:"image_url" binding:"omitempty,url,max=500"`
	Description       string           `json:"description"`
}

func (input *NewProduct) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewInputError("product name is required")
	}
	if input.Category != "" && !input.Category.IsValid() {
		return utils.NewInputError("invalid product category")
	}
	if input.Unit != "" && !input.Unit.IsValid() {
		return utils.NewInputError("invalid product unit")
	}
	if input.CostPrice.IsNegative() || input.SalePrice.IsNegative() {
		return utils.NewInputError("prices cannot be negative")
	}
	if input.CurrentStock.IsNegative() {
		return utils.NewInputError("current stock cannot be negative")
	}
	if input.MinStockThreshold != nil && input.MinStockThreshold.IsNegative() {
		return utils.NewInputError("min stock threshold cannot be negative")
	}
	return nil
}

// ProductPatch carries only the fields a caller wants to change; nil means unchanged.
type ProductPatch struct {
	Name              *string          `json:"name" binding:"omitempty,max=255"`
	Category          *ProductCategory `json:"category"`
	Unit              *ProductUnit     `json:"unit"`
	VolumeMl          *int             `json:"volume_ml" binding:"omitempty,gt=0"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	SalePrice         *decimal.Decimal `json:"sale_price"`
	MinStockThreshold *decimal.Decimal `json:"min_stock_threshold"`
	ImageUrl          *string          `json:"image_url"`
	Description       *string          `json:"description"`
	IsActive          *bool            `json:"is_active"`
}

// apply merges the patch into p and returns the changed columns.
func (patch *ProductPatch) apply(p *Product) (map[string]interface{}, error) {
	changes := make(map[string]interface{})
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, utils.NewInputError("product name is required")
		}
		p.Name = name
		changes["name"] = name
	}
	if patch.Category != nil {
		if !patch.Category.IsValid() {
			return nil, utils.NewInputError("invalid product category")
		}
		p.Category = *patch.Category
		changes["category"] = *patch.Category
	}
	if patch.Unit != nil {
		if !patch.Unit.IsValid() {
			return nil, utils.NewInputError("invalid product unit")
		}
		p.Unit = *patch.Unit
		changes["unit"] = *patch.Unit
	}
	if patch.VolumeMl != nil {
		p.VolumeMl = patch.VolumeMl
		changes["volume_ml"] = *patch.VolumeMl
	}
	if patch.CostPrice != nil {
		if patch.CostPrice.IsNegative() {
			return nil, utils.NewInputError("prices cannot be negative")
		}
		p.CostPrice = *patch.CostPrice
		changes["cost_price"] = *patch.CostPrice
	}
	if patch.SalePrice != nil {
		if patch.SalePrice.IsNegative() {
			return nil, utils.NewInputError("prices cannot be negative")
		}
		p.SalePrice = *patch.SalePrice
		changes["sale_price"] = *patch.SalePrice
	}
	if patch.MinStockThreshold != nil {
		if patch.MinStockThreshold.IsNegative() {
			return nil, utils.NewInputError("min stock threshold cannot be negative")
		}
		p.MinStockThreshold = *patch.MinStockThreshold
		changes["min_stock_threshold"] = *patch.MinStockThreshold
	}
	if patch.ImageUrl != nil {
		p.ImageUrl = utils.NilIfEmpty(*patch.ImageUrl)
		changes["image_url"] = p.ImageUrl
	}
	if patch.Description != nil {
		p.Description = utils.NilIfEmpty(*patch.Description)
		changes["description"] = p.Description
	}
	if patch.IsActive != nil {
		p.IsActive = patch.IsActive
		changes["is_active"] = *patch.IsActive
	}
	return changes, nil
}

type ProductFilter struct {
	Category   *ProductCategory
	ActiveOnly bool
	Search     string
}

func CreateProduct(ctx context.Context, db *gorm.DB, input *NewProduct) (*Product, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	product := Product{
		BarId:             barId,
		Name:              strings.TrimSpace(input.Name),
		Category:          input.Category,
		Unit:              input.Unit,
		VolumeMl:          input.VolumeMl,
		CostPrice:         input.CostPrice,
		SalePrice:         input.SalePrice,
		CurrentStock:      input.CurrentStock,
		MinStockThreshold: utils.DereferencePtr(input.MinStockThreshold, DefaultMinStockThreshold),
		ImageUrl:          utils.NilIfEmpty(input.ImageUrl),
		Description:       utils.NilIfEmpty(input.Description),
		IsActive:          utils.NewTrue(),
	}
	if product.Category == "" {
		product.Category = ProductCategoryOther
	}
	if product.Unit == "" {
		product.Unit = ProductUnitBottle
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, db *gorm.DB, id string) (*Product, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	product, err := utils.FetchModel[Product](ctx, db, barId, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewNotFoundError("product")
	}
	return product, err
}

// SetProductImage points the product at an uploaded image.
func SetProductImage(ctx context.Context, db *gorm.DB, id string, imageUrl string) (*Product, error) {
	product, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, err
	}
	product.ImageUrl = utils.NilIfEmpty(imageUrl)
	if err := db.WithContext(ctx).Model(&Product{}).
		Where("bar_id = ? AND id = ?", product.BarId, product.ID).
		Update("image_url", product.ImageUrl).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func UpdateProduct(ctx context.Context, db *gorm.DB, id string, patch *ProductPatch) (*Product, error) {
	product, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, err
	}
	changes, err := patch.apply(product)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return product, nil
	}
	if err := db.WithContext(ctx).Model(product).Updates(changes).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func ListProducts(ctx context.Context, db *gorm.DB, filter ProductFilter, page PageRequest) (*Page[Product], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&Product{}).Where("bar_id = ?", barId)
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	return paginate[Product](query, page, 50, "name")
}

// ListLowStockProducts returns active products at or below their threshold, lowest stock first.
func ListLowStockProducts(ctx context.Context, db *gorm.DB, limit int) ([]*Product, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	var products []*Product
	query := db.WithContext(ctx).
		Where("bar_id = ? AND is_active = ? AND current_stock <= min_stock_threshold", barId, true).
		Order("current_stock")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
