package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"gorm.io/gorm"
)

type Bar struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Address   *string   `gorm:"type:text" json:"address"`
	Phone     *string   `gorm:"size:20" json:"phone"`
	LogoUrl   *string   `gorm:"size:500" json:"logo_url"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Bar) BeforeCreate(tx *gorm.DB) error {
	newId(&b.ID)
	return nil
}

type NewBar struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address"`
	Phone   string `json:"phone" binding:"omitempty,max=20"`
	LogoUrl string `json:"logo_url" binding:"omitempty,url,max=500"`
}

func (input *NewBar) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewInputError("bar name is required")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, ""); err != nil {
			return err
		}
	}
	return nil
}

func CreateBar(ctx context.Context, db *gorm.DB, input *NewBar) (*Bar, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	bar := Bar{
		Name:    strings.TrimSpace(input.Name),
		Address: utils.NilIfEmpty(input.Address),
		Phone:   utils.NilIfEmpty(input.Phone),
		LogoUrl: utils.NilIfEmpty(input.LogoUrl),
	}
	if err := db.WithContext(ctx).Create(&bar).Error; err != nil {
		return nil, err
	}
	return &bar, nil
}

func GetBar(ctx context.Context, db *gorm.DB, id string) (*Bar, error) {
	var bar Bar
	if err := db.WithContext(ctx).Where("id = ?", id).First(&bar).Error; err != nil {
		return nil, notFound(err)
	}
	return &bar, nil
}
