package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrOpenShiftExists = errors.New("you already have an open shift, close it first")

type Shift struct {
	ID          string             `gorm:"type:char(36);primaryKey" json:"id"`
	BarId       string             `gorm:"type:char(36);not null;index:idx_shift_bar_status,priority:1" json:"bar_id"`
	StaffId     string             `gorm:"type:char(36);not null;index" json:"staff_id"`
	StartTime   time.Time          `gorm:"not null;index" json:"start_time"`
	EndTime     *time.Time         `json:"end_time"`
	Status      ShiftStatus        `gorm:"size:10;not null;default:OPEN;index:idx_shift_bar_status,priority:2" json:"status"`
	Notes       *string            `gorm:"type:text" json:"notes"`
	OpenedBy    *string            `gorm:"type:char(36)" json:"opened_by"`
	ClosedBy    *string            `gorm:"type:char(36)" json:"closed_by"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	StockCounts []*ShiftStockCount `gorm:"foreignKey:ShiftId" json:"stock_counts"`
}

func (s *Shift) BeforeCreate(tx *gorm.DB) error {
	newId(&s.ID)
	return nil
}

type ShiftStockCount struct {
	ID           string           `gorm:"type:char(36);primaryKey" json:"id"`
	ShiftId      string           `gorm:"type:char(36);not null;uniqueIndex:idx_count_shift_product,priority:1" json:"shift_id"`
	ProductId    string           `gorm:"type:char(36);not null;uniqueIndex:idx_count_shift_product,priority:2" json:"product_id"`
	OpeningCount decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"opening_count"`
	ClosingCount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"closing_count"`
}

func (c *ShiftStockCount) BeforeCreate(tx *gorm.DB) error {
	newId(&c.ID)
	return nil
}

type StockCountInput struct {
	ProductId string          `json:"product_id" binding:"required"`
	Count     decimal.Decimal `json:"count"`
}

type NewShift struct {
	StockCounts []StockCountInput `json:"stock_counts" binding:"dive"`
	Notes       string            `json:"notes"`
}

type CloseShiftInput struct {
	StockCounts []StockCountInput `json:"stock_counts" binding:"dive"`
	Notes       string            `json:"notes"`
}

func validateCounts(counts []StockCountInput) ([]string, error) {
	ids := make([]string, 0, len(counts))
	seen := make(map[string]struct{}, len(counts))
	for _, c := range counts {
		if c.Count.IsNegative() {
			return nil, utils.NewInputError("stock count cannot be negative")
		}
		if _, dup := seen[c.ProductId]; dup {
			return nil, utils.NewInputError("duplicate product in stock counts")
		}
		seen[c.ProductId] = struct{}{}
		ids = append(ids, c.ProductId)
	}
	return ids, nil
}

// OpenShift starts a shift for the calling staff member with its opening counts.
func OpenShift(ctx context.Context, db *gorm.DB, input *NewShift) (*Shift, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, utils.ErrorUnauthorized
	}
	productIds, err := validateCounts(input.StockCounts)
	if err != nil {
		return nil, err
	}

	shift := Shift{
		BarId:     barId,
		StaffId:   userId,
		StartTime: time.Now().UTC(),
		Status:    ShiftStatusOpen,
		Notes:     utils.NilIfEmpty(input.Notes),
		OpenedBy:  &userId,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&Shift{}).
			Where("bar_id = ? AND staff_id = ? AND status = ?", barId, userId, ShiftStatusOpen).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrOpenShiftExists
		}
		if err := utils.ValidateResourcesId[Product](ctx, tx, barId, productIds); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewNotFoundError("product")
			}
			return err
		}
		if err := tx.Create(&shift).Error; err != nil {
			return err
		}
		for _, c := range input.StockCounts {
			shift.StockCounts = append(shift.StockCounts, &ShiftStockCount{
				ShiftId:      shift.ID,
				ProductId:    c.ProductId,
				OpeningCount: c.Count,
			})
		}
		if len(shift.StockCounts) == 0 {
			return nil
		}
		return tx.Create(&shift.StockCounts).Error
	})
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// ApplyClosingCounts writes closing counts onto the shift's count rows. Products
// that were not counted at open get a new row with an opening count of zero.
// tx must be the close transaction.
func ApplyClosingCounts(ctx context.Context, tx *gorm.DB, shift *Shift, counts []StockCountInput) error {
	productIds, err := validateCounts(counts)
	if err != nil {
		return err
	}
	if err := utils.ValidateResourcesId[Product](ctx, tx, shift.BarId, productIds); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return utils.NewNotFoundError("product")
		}
		return err
	}

	byProduct := make(map[string]*ShiftStockCount, len(shift.StockCounts))
	for _, c := range shift.StockCounts {
		byProduct[c.ProductId] = c
	}
	for _, in := range counts {
		closing := in.Count
		if existing, ok := byProduct[in.ProductId]; ok {
			existing.ClosingCount = &closing
			if err := tx.WithContext(ctx).Model(existing).Update("closing_count", closing).Error; err != nil {
				return err
			}
			continue
		}
		added := &ShiftStockCount{
			ShiftId:      shift.ID,
			ProductId:    in.ProductId,
			OpeningCount: decimal.Zero,
			ClosingCount: &closing,
		}
		if err := tx.WithContext(ctx).Create(added).Error; err != nil {
			return err
		}
		shift.StockCounts = append(shift.StockCounts, added)
		byProduct[in.ProductId] = added
	}
	return nil
}

// MarkShiftClosed flips the shift to CLOSED and appends the closing notes.
func MarkShiftClosed(ctx context.Context, tx *gorm.DB, shift *Shift, closedBy string, endTime time.Time, notes string) error {
	shift.Status = ShiftStatusClosed
	shift.EndTime = &endTime
	shift.Notes = appendNotes(shift.Notes, notes)
	if closedBy != "" {
		shift.ClosedBy = &closedBy
	}
	return tx.WithContext(ctx).Model(&Shift{}).Where("id = ?", shift.ID).Updates(map[string]interface{}{
		"status":    shift.Status,
		"end_time":  shift.EndTime,
		"notes":     shift.Notes,
		"closed_by": shift.ClosedBy,
	}).Error
}

func GetShift(ctx context.Context, db *gorm.DB, id string) (*Shift, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Shift](ctx, db, barId, id, "StockCounts")
}

type ShiftFilter struct {
	Status  *ShiftStatus
	StaffId string
}

func ListShifts(ctx context.Context, db *gorm.DB, filter ShiftFilter, page PageRequest) (*Page[Shift], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := db.WithContext(ctx).Model(&Shift{}).Where("bar_id = ?", barId).Preload("StockCounts")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StaffId != "" {
		query = query.Where("staff_id = ?", filter.StaffId)
	}
	return paginate[Shift](query, page, 20, "created_at DESC")
}

type DailyShiftEntry struct {
	Id            string      `json:"id"`
	StaffId       string      `json:"staff_id"`
	StaffName     string      `json:"staff_name"`
	Status        ShiftStatus `json:"status"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       *time.Time  `json:"end_time"`
	DurationHours *float64    `json:"duration_hours"`
	OpenedByName  string      `json:"opened_by_name"`
	ClosedByName  string      `json:"closed_by_name"`
	SalesCount    int64       `json:"sales_count"`
	Notes         *string     `json:"notes"`
}

type DailyShifts struct {
	Date             string             `json:"date"`
	TotalShifts      int                `json:"total_shifts"`
	TotalHoursWorked float64            `json:"total_hours_worked"`
	OpenShiftsCount  int                `json:"open_shifts_count"`
	Shifts           []*DailyShiftEntry `json:"shifts"`
}

// ListDailyShifts is the shift logbook for one calendar day in loc.
func ListDailyShifts(ctx context.Context, db *gorm.DB, loc *time.Location, day time.Time, staffId string) (*DailyShifts, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	from, to := utils.DayRange(day, loc)

	var shifts []*Shift
	query := db.WithContext(ctx).
		Where("bar_id = ? AND start_time >= ? AND start_time < ?", barId, from.UTC(), to.UTC())
	if staffId != "" {
		query = query.Where("staff_id = ?", staffId)
	}
	if err := query.Order("start_time").Find(&shifts).Error; err != nil {
		return nil, err
	}

	userIds := make([]string, 0)
	shiftIds := make([]string, 0, len(shifts))
	for _, s := range shifts {
		shiftIds = append(shiftIds, s.ID)
		userIds = append(userIds, s.StaffId)
		if s.OpenedBy != nil {
			userIds = append(userIds, *s.OpenedBy)
		}
		if s.ClosedBy != nil {
			userIds = append(userIds, *s.ClosedBy)
		}
	}

	names := make(map[string]string)
	if len(userIds) > 0 {
		var users []*User
		if err := db.WithContext(ctx).Select("id", "full_name").
			Where("id IN ?", utils.UniqueSlice(userIds)).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}

	salesCounts := make(map[string]int64)
	if len(shiftIds) > 0 {
		var rows []struct {
			ShiftId string
			Count   int64
		}
		if err := db.WithContext(ctx).Model(&SalesRecord{}).
			Select("shift_id, COUNT(*) AS count").
			Where("bar_id = ? AND shift_id IN ?", barId, shiftIds).
			Group("shift_id").Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			salesCounts[r.ShiftId] = r.Count
		}
	}

	result := &DailyShifts{
		Date:   from.Format("2006-01-02"),
		Shifts: make([]*DailyShiftEntry, 0, len(shifts)),
	}
	for _, s := range shifts {
		entry := &DailyShiftEntry{
			Id:         s.ID,
			StaffId:    s.StaffId,
			StaffName:  names[s.StaffId],
			Status:     s.Status,
			StartTime:  s.StartTime,
			EndTime:    s.EndTime,
			SalesCount: salesCounts[s.ID],
			Notes:      s.Notes,
		}
		if s.OpenedBy != nil {
			entry.OpenedByName = names[*s.OpenedBy]
		}
		if s.ClosedBy != nil {
			entry.ClosedByName = names[*s.ClosedBy]
		}
		if s.EndTime != nil {
			hours := roundHours(s.EndTime.Sub(s.StartTime))
			entry.DurationHours = &hours
			result.TotalHoursWorked += hours
		}
		if s.Status == ShiftStatusOpen {
			result.OpenShiftsCount++
		}
		result.Shifts = append(result.Shifts, entry)
	}
	result.TotalShifts = len(result.Shifts)
	result.TotalHoursWorked = decimal.NewFromFloat(result.TotalHoursWorked).Round(2).InexactFloat64()
	return result, nil
}

func roundHours(d time.Duration) float64 {
	return decimal.NewFromFloat(d.Hours()).Round(2).InexactFloat64()
}
