package utils

import (
	"context"

	"gorm.io/gorm"
)

// check if id exists within the bar, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, barId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, barId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check if ALL ids exist within the bar
func ValidateResourcesId[M any, ID comparable](ctx context.Context, db *gorm.DB, barId string, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}
	count, err := ResourceCountWhere[M](ctx, db, barId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, db *gorm.DB, barId string, column string, value interface{}, exceptId string) error {
	var (
		count int64
		err   error
	)
	if exceptId == "" {
		count, err = ResourceCountWhere[T](ctx, db, barId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, db, barId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return NewDuplicateError("duplicate " + column)
	}
	return nil
}

// count records, using WHERE bar_id = ? AND $condition
// bar_id can be blank for unscoped lookups (e.g. login by username)
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, barId string, condition string, value ...interface{}) (int64, error) {
	var model T
	dbCtx := db.WithContext(ctx).Model(&model)
	if barId != "" {
		dbCtx = dbCtx.Where("bar_id = ?", barId)
	}
	var count int64
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
