package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/models/reports"
	"github.com/mmdatafocus/barstock_backend/utils"
)

func (a *app) lossReportFilter(c *gin.Context) (models.LossReportFilter, error) {
	filter := models.LossReportFilter{
		UnresolvedOnly: c.Query("unresolved_only") == "true",
		ShiftId:        c.Query("shift_id"),
	}
	if v := c.Query("severity"); v != "" {
		severity := models.LossSeverity(v)
		if !severity.IsValid() {
			return filter, utils.NewInputError(fmt.Sprintf("invalid severity %q", v))
		}
		filter.Severity = &severity
	}
	if v := c.Query("reason_code"); v != "" {
		reason := models.ReasonCode(v)
		if !reason.IsValid() {
			return filter, utils.NewInputError(fmt.Sprintf("invalid reason code %q", v))
		}
		filter.ReasonCode = &reason
	}
	from, _, err := queryDate(c, "from", a.cfg.Location)
	if err != nil {
		return filter, err
	}
	to, ok, err := queryDate(c, "to", a.cfg.Location)
	if err != nil {
		return filter, err
	}
	if ok {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	filter.From, filter.To = from, to
	return filter, nil
}

func (a *app) listLossReportsHandler(c *gin.Context) {
	filter, err := a.lossReportFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := models.ListLossReports(c.Request.Context(), a.db, filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *app) lossSummaryHandler(c *gin.Context) {
	summary, err := models.GetLossSummary(c.Request.Context(), a.db, a.cache, a.logger, a.cfg.ReportCacheTTLOrZero(), queryInt(c, "days", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *app) reviewLossReportHandler(c *gin.Context) {
	var review models.LossReportReview
	if !bindJSON(c, &review) {
		return
	}
	report, err := models.ReviewLossReport(c.Request.Context(), a.db, a.cache, a.logger, c.Param("id"), &review)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *app) exportLossReportsHandler(c *gin.Context) {
	filter, err := a.lossReportFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ExportLossReports(c.Request.Context(), a.db, a.cfg.Location, filter, &buf); err != nil {
		respondInternal(c, err)
		return
	}
	filename := fmt.Sprintf("loss_reports_%s.xlsx", time.Now().In(a.cfg.Location).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}

func (a *app) dashboardHandler(c *gin.Context) {
	dashboard, err := reports.GetManagerDashboard(c.Request.Context(), a.db, a.logger, a.cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (a *app) ownerDashboardHandler(c *gin.Context) {
	dashboard, err := reports.GetOwnerDashboard(c.Request.Context(), a.db, a.logger)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (a *app) outboxStatusHandler(c *gin.Context) {
	barId, _ := utils.GetBarIdFromContext(c.Request.Context())
	counts, err := models.GetOutboxStatusCounts(c.Request.Context(), a.db, barId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bar_id": barId, "pubsub_enabled": a.cfg.PubSub.Enabled(), "counts": counts})
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id" binding:"required,gt=0"`
}

func (a *app) outboxReplayHandler(c *gin.Context) {
	var req outboxReplayRequest
	if !bindJSON(c, &req) {
		return
	}
	barId, _ := utils.GetBarIdFromContext(c.Request.Context())
	record, err := models.ReplayOutboxRecord(c.Request.Context(), a.db, barId, req.RecordId)
	if err != nil {
		respondError(c, err)
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"record_id":       record.ID,
		"publish_status":  record.PublishStatus,
		"next_attempt_at": record.NextAttemptAt,
		"correlation_id":  cid,
	})
}
