package models

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/barstock_backend/utils"
	"gorm.io/gorm"
)

func newId(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// notFound maps gorm's sentinel to utils.ErrorRecordNotFound and passes others through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

func appendNotes(existing *string, extra string) *string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return existing
	}
	merged := extra
	if existing != nil && *existing != "" {
		merged = *existing + "\n" + extra
	}
	return &merged
}
