package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// fetch model from db
// (bar_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, db *gorm.DB, barId string, id string, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx).Where("bar_id = ?", barId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.Where("id = ?", id).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch all models of a bar
func FetchAllModels[T any](ctx context.Context, db *gorm.DB, barId string, associations ...string) ([]*T, error) {
	dbCtx := db.WithContext(ctx).Where("bar_id = ?", barId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
