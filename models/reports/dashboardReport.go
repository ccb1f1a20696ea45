package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DashboardSummary struct {
	TotalProducts      int             `json:"total_products"`
	TotalStockValue    decimal.Decimal `json:"total_stock_value"`
	ActiveShifts       int64           `json:"active_shifts"`
	MonthlyRevenue     decimal.Decimal `json:"monthly_revenue"`
	TodayLossValue     decimal.Decimal `json:"today_loss_value"`
	TodayLossIncidents int             `json:"today_loss_incidents"`
	UnresolvedAlerts   int64           `json:"unresolved_alerts"`
}

type LowStockAlert struct {
	Id           string                 `json:"id"`
	Name         string                 `json:"name"`
	CurrentStock decimal.Decimal        `json:"current_stock"`
	MinThreshold decimal.Decimal        `json:"min_threshold"`
	Category     models.ProductCategory `json:"category"`
}

type LossTrendPoint struct {
	Date      string          `json:"date"`
	TotalLoss decimal.Decimal `json:"total_loss"`
	Incidents int             `json:"incidents"`
}

type ManagerDashboard struct {
	Summary        DashboardSummary  `json:"summary"`
	LowStockAlerts []*LowStockAlert  `json:"low_stock_alerts"`
	LossTrend      []*LossTrendPoint `json:"loss_trend"`
}

// GetManagerDashboard aggregates live stock, today's and this week's losses,
// and the last 30 days of revenue for the caller's bar.
func GetManagerDashboard(ctx context.Context, db *gorm.DB, logger *logrus.Logger, cfg *config.Config) (*ManagerDashboard, error) {
	started := time.Now()
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now()
	todayStart, todayEnd := utils.DayRange(now, loc)
	weekAgo := todayStart.AddDate(0, 0, -6)
	monthAgo := now.AddDate(0, 0, -30)

	var products []*models.Product
	if err := db.WithContext(ctx).
		Where("bar_id = ? AND is_active = ?", barId, true).
		Order("current_stock").Find(&products).Error; err != nil {
		return nil, err
	}

	dash := &ManagerDashboard{
		Summary: DashboardSummary{
			TotalProducts:   len(products),
			TotalStockValue: decimal.Zero,
			MonthlyRevenue:  decimal.Zero,
			TodayLossValue:  decimal.Zero,
		},
		LowStockAlerts: make([]*LowStockAlert, 0),
		LossTrend:      make([]*LossTrendPoint, 0),
	}
	for _, p := range products {
		dash.Summary.TotalStockValue = dash.Summary.TotalStockValue.Add(p.CurrentStock.Mul(p.CostPrice))
		if p.CurrentStock.LessThanOrEqual(p.MinStockThreshold) {
			dash.LowStockAlerts = append(dash.LowStockAlerts, &LowStockAlert{
				Id:           p.ID,
				Name:         p.Name,
				CurrentStock: p.CurrentStock,
				MinThreshold: p.MinStockThreshold,
				Category:     p.Category,
			})
		}
	}

	var weekReports []*models.LossReport
	if err := db.WithContext(ctx).
		Where("bar_id = ? AND created_at >= ?", barId, weekAgo.UTC()).
		Find(&weekReports).Error; err != nil {
		return nil, err
	}
	trend := make(map[string]*LossTrendPoint)
	for _, r := range weekReports {
		local := r.CreatedAt.In(loc)
		if !local.Before(todayStart) && local.Before(todayEnd) {
			dash.Summary.TodayLossValue = dash.Summary.TodayLossValue.Add(r.LossValue)
			dash.Summary.TodayLossIncidents++
		}
		key := local.Format("2006-01-02")
		point, ok := trend[key]
		if !ok {
			point = &LossTrendPoint{Date: key, TotalLoss: decimal.Zero}
			trend[key] = point
		}
		point.TotalLoss = point.TotalLoss.Add(r.LossValue)
		point.Incidents++
	}
	for _, p := range trend {
		dash.LossTrend = append(dash.LossTrend, p)
	}
	sort.Slice(dash.LossTrend, func(i, j int) bool { return dash.LossTrend[i].Date < dash.LossTrend[j].Date })

	if err := db.WithContext(ctx).Model(&models.LossReport{}).
		Where("bar_id = ? AND reason_code IS NULL", barId).
		Count(&dash.Summary.UnresolvedAlerts).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.Shift{}).
		Where("bar_id = ? AND status = ?", barId, models.ShiftStatusOpen).
		Count(&dash.Summary.ActiveShifts).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.SalesRecord{}).
		Select("COALESCE(SUM(sale_amount), 0)").
		Where("bar_id = ? AND created_at >= ?", barId, monthAgo.UTC()).
		Scan(&dash.Summary.MonthlyRevenue).Error; err != nil {
		return nil, err
	}

	logSlowReport(ctx, logger, "manager_dashboard", started, logrus.Fields{"products": len(products)})
	return dash, nil
}

type OwnerFinancials struct {
	CurrentMonthRevenue decimal.Decimal `json:"current_month_revenue"`
	CurrentMonthLosses  decimal.Decimal `json:"current_month_losses"`
	PreviousMonthLosses decimal.Decimal `json:"previous_month_losses"`
	LossImprovementPct  decimal.Decimal `json:"loss_improvement_pct"`
	TotalStockValue     decimal.Decimal `json:"total_stock_value"`
}

// StaffLoss attributes loss reports to the staff member who ran the shift.
type StaffLoss struct {
	Id             string          `json:"id"`
	Name           string          `json:"name"`
	Role           models.UserRole `json:"role"`
	LossIncidents  int64           `json:"loss_incidents"`
	TotalLossValue decimal.Decimal `json:"total_loss_value"`
}

type OwnerDashboard struct {
	Financials       OwnerFinancials `json:"financials"`
	StaffPerformance []*StaffLoss    `json:"staff_performance"`
}

type staffLossRow struct {
	StaffId   string
	Incidents int64
	TotalLoss decimal.Decimal
}

// GetOwnerDashboard compares the last 30 days of losses with the 30 days
// before and ranks staff by the loss value of the shifts they ran.
func GetOwnerDashboard(ctx context.Context, db *gorm.DB, logger *logrus.Logger) (*OwnerDashboard, error) {
	started := time.Now()
	barId, err := utils.RequireBarId(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	monthAgo := now.AddDate(0, 0, -30)
	prevMonthStart := now.AddDate(0, 0, -60)

	dash := &OwnerDashboard{StaffPerformance: make([]*StaffLoss, 0)}
	fin := &dash.Financials
	fin.CurrentMonthRevenue, fin.CurrentMonthLosses, fin.PreviousMonthLosses = decimal.Zero, decimal.Zero, decimal.Zero

	if err := db.WithContext(ctx).Model(&models.LossReport{}).
		Select("COALESCE(SUM(loss_value), 0)").
		Where("bar_id = ? AND created_at >= ?", barId, monthAgo).
		Scan(&fin.CurrentMonthLosses).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.LossReport{}).
		Select("COALESCE(SUM(loss_value), 0)").
		Where("bar_id = ? AND created_at >= ? AND created_at < ?", barId, prevMonthStart, monthAgo).
		Scan(&fin.PreviousMonthLosses).Error; err != nil {
		return nil, err
	}
	fin.LossImprovementPct = lossImprovementPct(fin.PreviousMonthLosses, fin.CurrentMonthLosses)

	if err := db.WithContext(ctx).Model(&models.SalesRecord{}).
		Select("COALESCE(SUM(sale_amount), 0)").
		Where("bar_id = ? AND created_at >= ?", barId, monthAgo).
		Scan(&fin.CurrentMonthRevenue).Error; err != nil {
		return nil, err
	}

	var products []*models.Product
	if err := db.WithContext(ctx).
		Select("current_stock", "cost_price").
		Where("bar_id = ? AND is_active = ?", barId, true).
		Find(&products).Error; err != nil {
		return nil, err
	}
	fin.TotalStockValue = decimal.Zero
	for _, p := range products {
		fin.TotalStockValue = fin.TotalStockValue.Add(p.CurrentStock.Mul(p.CostPrice))
	}

	var rows []*staffLossRow
	if err := db.WithContext(ctx).Model(&models.LossReport{}).
		Select("shifts.staff_id AS staff_id, COUNT(*) AS incidents, COALESCE(SUM(loss_reports.loss_value), 0) AS total_loss").
		Joins("JOIN shifts ON shifts.id = loss_reports.shift_id").
		Where("loss_reports.bar_id = ? AND loss_reports.created_at >= ?", barId, monthAgo).
		Group("shifts.staff_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	byStaff := make(map[string]*staffLossRow, len(rows))
	for _, r := range rows {
		byStaff[r.StaffId] = r
	}

	var staff []*models.User
	if err := db.WithContext(ctx).
		Select("id", "full_name", "role").
		Where("bar_id = ?", barId).
		Find(&staff).Error; err != nil {
		return nil, err
	}
	for _, u := range staff {
		entry := &StaffLoss{Id: u.ID, Name: u.FullName, Role: u.Role, TotalLossValue: decimal.Zero}
		if r, ok := byStaff[u.ID]; ok {
			entry.LossIncidents = r.Incidents
			entry.TotalLossValue = r.TotalLoss
		}
		dash.StaffPerformance = append(dash.StaffPerformance, entry)
	}
	sort.SliceStable(dash.StaffPerformance, func(i, j int) bool {
		a, b := dash.StaffPerformance[i], dash.StaffPerformance[j]
		if !a.TotalLossValue.Equal(b.TotalLossValue) {
			return a.TotalLossValue.GreaterThan(b.TotalLossValue)
		}
		return a.Name < b.Name
	})

	logSlowReport(ctx, logger, "owner_dashboard", started, logrus.Fields{"staff": len(staff)})
	return dash, nil
}

// lossImprovementPct is the drop from previous to current as a percentage of
// previous, one decimal place. No previous losses means no baseline, so 0.
func lossImprovementPct(previous, current decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return previous.Sub(current).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
}
