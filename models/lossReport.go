package models

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const topLossProductsLimit = 5

type LossReport struct {
	ID                  string          `gorm:"type:char(36);primaryKey" json:"id"`
	BarId               string          `gorm:"type:char(36);not null;index:idx_loss_bar_created,priority:1" json:"bar_id"`
	ReconciliationId    string          `gorm:"type:char(36);not null;uniqueIndex" json:"reconciliation_id"`
	ProductId           string          `gorm:"type:char(36);not null;index" json:"product_id"`
	ShiftId             string          `gorm:"type:char(36);not null;index" json:"shift_id"`
	DiscrepancyQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"discrepancy_quantity"`
	LossValue           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"loss_value"`
	Severity            LossSeverity    `gorm:"size:10;not null;index" json:"severity"`
	ReasonCode          *ReasonCode     `gorm:"size:20;index" json:"reason_code"`
	ReviewedBy          *string         `gorm:"type:char(36)" json:"reviewed_by"`
	ReviewedAt          *time.Time      `json:"reviewed_at"`
	Notes               *string         `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time       `gorm:"autoCreateTime;index:idx_loss_bar_created,priority:2" json:"created_at"`
}

func (l *LossReport) BeforeCreate(tx *gorm.DB) error {
	newId(&l.ID)
	return nil
}

// LossReportReview is the manager's verdict on one loss report.
type LossReportReview struct {
	ReasonCode ReasonCode `json:"reason_code" binding:"required"`
	Notes      *string    `json:"notes"`
}

type LossReportFilter struct {
	Severity       *LossSeverity
	ReasonCode     *ReasonCode
	UnresolvedOnly bool
	ShiftId        string
	From           *time.Time
	To             *time.Time
}

func (f LossReportFilter) apply(query *gorm.DB) *gorm.DB {
	if f.Severity != nil {
		query = query.Where("severity = ?", *f.Severity)
	}
	if f.ReasonCode != nil {
		query = query.Where("reason_code = ?", *f.ReasonCode)
	}
	if f.UnresolvedOnly {
		query = query.Where("reason_code IS NULL")
	}
	if f.ShiftId != "" {
		query = query.Where("shift_id = ?", f.ShiftId)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	return query
}

func ListLossReports(ctx context.Context, db *gorm.DB, filter LossReportFilter, page PageRequest) (*Page[LossReport], error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	query := filter.apply(db.WithContext(ctx).Model(&LossReport{}).Where("bar_id = ?", barId))
	return paginate[LossReport](query, page, 50, "created_at DESC")
}

// ReviewLossReport records the manager's reason code and notes. The cached
// summaries of the bar are invalidated since the unresolved count changed.
func ReviewLossReport(ctx context.Context, db *gorm.DB, cache *config.RedisStore, logger *logrus.Logger, id string, review *LossReportReview) (*LossReport, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	reviewedBy, ok := utils.GetUserIdFromContext(ctx)
	if !ok || reviewedBy == "" {
		return nil, utils.ErrorUnauthorized
	}
	if !review.ReasonCode.IsValid() {
		return nil, utils.NewInputError("invalid reason code")
	}

	report, err := utils.FetchModel[LossReport](ctx, db, barId, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	reason := review.ReasonCode
	report.ReasonCode = &reason
	report.Notes = review.Notes
	report.ReviewedBy = &reviewedBy
	report.ReviewedAt = &now

	if err := db.WithContext(ctx).Model(&LossReport{}).Where("id = ?", report.ID).Updates(map[string]interface{}{
		"reason_code": report.ReasonCode,
		"notes":       report.Notes,
		"reviewed_by": report.ReviewedBy,
		"reviewed_at": report.ReviewedAt,
	}).Error; err != nil {
		return nil, err
	}
	ClearLossSummaryCache(ctx, cache, logger, barId)
	return report, nil
}

type TopLossProduct struct {
	ProductId   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	TotalLoss   decimal.Decimal `json:"total_loss"`
	Incidents   int             `json:"incidents"`
}

type LossSummary struct {
	Days            int               `json:"days"`
	TotalLossValue  decimal.Decimal   `json:"total_loss_value"`
	TotalIncidents  int               `json:"total_incidents"`
	CriticalCount   int               `json:"critical_count"`
	WarningCount    int               `json:"warning_count"`
	InfoCount       int               `json:"info_count"`
	UnresolvedCount int               `json:"unresolved_count"`
	TopLossProducts []*TopLossProduct `json:"top_loss_products"`
}

// SummarizeLossReports folds reports into totals, severity counts and the
// products with the largest loss value.
func SummarizeLossReports(reports []*LossReport, productNames map[string]string) *LossSummary {
	summary := &LossSummary{
		TotalLossValue:  decimal.Zero,
		TopLossProducts: make([]*TopLossProduct, 0),
	}
	byProduct := make(map[string]*TopLossProduct)
	for _, r := range reports {
		summary.TotalLossValue = summary.TotalLossValue.Add(r.LossValue)
		summary.TotalIncidents++
		switch r.Severity {
		case LossSeverityCritical:
			summary.CriticalCount++
		case LossSeverityWarning:
			summary.WarningCount++
		case LossSeverityInfo:
			summary.InfoCount++
		}
		if r.ReasonCode == nil {
			summary.UnresolvedCount++
		}
		tp, ok := byProduct[r.ProductId]
		if !ok {
			tp = &TopLossProduct{ProductId: r.ProductId, TotalLoss: decimal.Zero}
			byProduct[r.ProductId] = tp
		}
		tp.TotalLoss = tp.TotalLoss.Add(r.LossValue)
		tp.Incidents++
	}

	for _, tp := range byProduct {
		summary.TopLossProducts = append(summary.TopLossProducts, tp)
	}
	sort.SliceStable(summary.TopLossProducts, func(i, j int) bool {
		a, b := summary.TopLossProducts[i], summary.TopLossProducts[j]
		if c := a.TotalLoss.Cmp(b.TotalLoss); c != 0 {
			return c > 0
		}
		return a.ProductId < b.ProductId
	})
	if len(summary.TopLossProducts) > topLossProductsLimit {
		summary.TopLossProducts = summary.TopLossProducts[:topLossProductsLimit]
	}
	for _, tp := range summary.TopLossProducts {
		name, ok := productNames[tp.ProductId]
		if !ok {
			name = "Unknown"
		}
		tp.ProductName = name
	}
	return summary
}

// GetLossSummary summarizes the last `days` days of loss reports. Results are
// cached per bar when cacheTTL is positive.
func GetLossSummary(ctx context.Context, db *gorm.DB, cache *config.RedisStore, logger *logrus.Logger, cacheTTL time.Duration, days int) (*LossSummary, error) {
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}
	now := time.Now().UTC()
	cutoff := lossSummaryCutoff(now, days)

	key := utils.LossSummaryCacheKey(barId, &cutoff, &now)
	if cacheTTL > 0 {
		var cached LossSummary
		if exists, err := cache.GetObject(ctx, key, &cached); err == nil && exists {
			return &cached, nil
		}
	}

	var reports []*LossReport
	if err := db.WithContext(ctx).
		Where("bar_id = ? AND created_at >= ?", barId, cutoff).
		Find(&reports).Error; err != nil {
		return nil, err
	}

	productIds := make([]string, 0, len(reports))
	for _, r := range reports {
		productIds = append(productIds, r.ProductId)
	}
	names := make(map[string]string)
	if len(productIds) > 0 {
		var products []*Product
		if err := db.WithContext(ctx).Select("id", "name").
			Where("bar_id = ? AND id IN ?", barId, utils.UniqueSlice(productIds)).
			Find(&products).Error; err != nil {
			return nil, err
		}
		for _, p := range products {
			names[p.ID] = p.Name
		}
	}

	summary := SummarizeLossReports(reports, names)
	summary.Days = days
	if cacheTTL > 0 {
		if err := cache.SetObject(ctx, key, summary, cacheTTL); err != nil && logger != nil {
			logger.WithFields(logrus.Fields{"bar_id": barId, "key": key}).Warn("loss summary not cached: " + err.Error())
		}
	}
	return summary, nil
}

// lossSummaryCutoff is the start of the UTC day `days` days before now. The
// summary cache key only carries the day, so the query window starts on a day
// boundary too.
func lossSummaryCutoff(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// ClearLossSummaryCache drops every cached summary of the bar. Failures are
// logged; the cached copy then expires with its TTL.
func ClearLossSummaryCache(ctx context.Context, cache *config.RedisStore, logger *logrus.Logger, barId string) {
	if err := cache.RemovePattern(ctx, utils.LossSummaryCachePattern(barId)); err != nil && logger != nil {
		logger.WithFields(logrus.Fields{"bar_id": barId}).Warn("loss summary cache not cleared: " + err.Error())
	}
}
