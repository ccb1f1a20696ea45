package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrShiftAlreadyClosed = errors.New("shift already closed")

const shiftCloseLockTTL = 30 * time.Second

// ShiftCloser runs the shift-close transaction: closing counts, status change,
// reconciliation and loss alert outbox rows commit or roll back together.
type ShiftCloser struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Cache    *config.RedisStore
	Location *time.Location
	Now      func() time.Time
}

func NewShiftCloser(db *gorm.DB, logger *logrus.Logger, cache *config.RedisStore, loc *time.Location) *ShiftCloser {
	return &ShiftCloser{DB: db, Logger: logger, Cache: cache, Location: loc, Now: time.Now}
}

type CloseShiftResult struct {
	Shift          *models.Shift
	Reconciliation *ReconciliationResult
}

func (c *ShiftCloser) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func (c *ShiftCloser) CloseShift(ctx context.Context, shiftId string, input *models.CloseShiftInput) (*CloseShiftResult, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	logFields := logrus.Fields{"bar_id": barId, "shift_id": shiftId}

	// best effort; the row lock and the bar stock lock below are authoritative
	lock, err := c.Cache.ObtainLock(ctx, utils.ShiftCloseLockKey(barId), shiftCloseLockTTL)
	if err != nil && c.Logger != nil {
		c.Logger.WithFields(logFields).Warn("shift close: redis lock unavailable: " + err.Error())
	}
	if lock != nil {
		defer func() { _ = lock.Release(context.Background()) }()
	}

	var result CloseShiftResult
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBarStockLock(tx, barId); err != nil {
			return err
		}
		defer ReleaseBarStockLock(tx, barId)

		var shift models.Shift
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("bar_id = ? AND id = ?", barId, shiftId).
			First(&shift).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		if shift.Status == models.ShiftStatusClosed {
			return ErrShiftAlreadyClosed
		}
		if err := tx.Where("shift_id = ?", shift.ID).Find(&shift.StockCounts).Error; err != nil {
			return err
		}

		if err := models.ApplyClosingCounts(ctx, tx, &shift, input.StockCounts); err != nil {
			return err
		}
		if err := models.MarkShiftClosed(ctx, tx, &shift, userId, c.now(), input.Notes); err != nil {
			return err
		}

		reconciler := NewShiftReconciler(NewGormReconciliationLedger(tx), c.Logger, c.Location)
		if c.Now != nil {
			reconciler.Now = c.Now
		}
		recon, err := reconciler.Run(ctx, barId, shift.ID)
		if err != nil {
			return err
		}
		for _, report := range recon.LossReports {
			if !report.Severity.Alerting() {
				continue
			}
			if err := models.EnqueueLossAlert(ctx, tx, report); err != nil {
				return err
			}
		}
		result = CloseShiftResult{Shift: &shift, Reconciliation: recon}
		return nil
	})
	if err != nil {
		if c.Logger != nil && !errors.Is(err, ErrShiftAlreadyClosed) && !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(c.Logger, "shiftClose.go", "CloseShift", "closing shift", logFields, err)
		}
		return nil, err
	}

	if len(result.Reconciliation.LossReports) > 0 {
		models.ClearLossSummaryCache(ctx, c.Cache, c.Logger, barId)
	}
	return &result, nil
}
