package models

import "gorm.io/gorm"

const (
	defaultPageLimit = 20
	maxPageLimit     = 200
)

// PageRequest is 1-based offset pagination.
type PageRequest struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

func (p PageRequest) normalized(defaultLimit int) PageRequest {
	if defaultLimit <= 0 {
		defaultLimit = defaultPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// paginate counts the filtered query then fetches one page ordered by orderBy.
func paginate[T any](query *gorm.DB, page PageRequest, defaultLimit int, orderBy string) (*Page[T], error) {
	page = page.normalized(defaultLimit)
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := query.Order(orderBy).Offset(page.Offset()).Limit(page.Limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}
