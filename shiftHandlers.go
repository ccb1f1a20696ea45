package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/models"
)

func (a *app) openShiftHandler(c *gin.Context) {
	var input models.NewShift
	if !bindJSON(c, &input) {
		return
	}
	shift, err := models.OpenShift(c.Request.Context(), a.db, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

func (a *app) listShiftsHandler(c *gin.Context) {
	filter := models.ShiftFilter{StaffId: c.Query("staff_id")}
	if v := c.Query("status"); v != "" {
		status := models.ShiftStatus(v)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shift status"})
			return
		}
		filter.Status = &status
	}
	page, err := models.ListShifts(c.Request.Context(), a.db, filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *app) dailyShiftsHandler(c *gin.Context) {
	day, ok, err := queryDate(c, "date", a.cfg.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		now := time.Now().In(a.cfg.Location)
		day = &now
	}
	result, err := models.ListDailyShifts(c.Request.Context(), a.db, a.cfg.Location, *day, c.Query("staff_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *app) getShiftHandler(c *gin.Context) {
	shift, err := models.GetShift(c.Request.Context(), a.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

type closeShiftResponse struct {
	Shift             *models.Shift            `json:"shift"`
	Reconciliations   []*models.Reconciliation `json:"reconciliations"`
	LossReports       []*models.LossReport     `json:"loss_reports"`
	SkippedProductIds []string                 `json:"skipped_product_ids"`
}

// closeShiftHandler closes the shift and returns what the reconciliation produced.
func (a *app) closeShiftHandler(c *gin.Context) {
	var input models.CloseShiftInput
	if !bindJSON(c, &input) {
		return
	}
	res, err := a.closer.CloseShift(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, closeShiftResponse{
		Shift:             res.Shift,
		Reconciliations:   res.Reconciliation.Reconciliations,
		LossReports:       res.Reconciliation.LossReports,
		SkippedProductIds: res.Reconciliation.SkippedProductIds,
	})
}

func (a *app) listReconciliationsHandler(c *gin.Context) {
	filter := models.ReconciliationFilter{
		ShiftId:   c.Query("shift_id"),
		ProductId: c.Query("product_id"),
	}
	var err error
	if filter.From, err = queryUTCDate(c, "from", a.cfg.Location); err != nil {
		respondError(c, err)
		return
	}
	if filter.To, err = queryUTCDate(c, "to", a.cfg.Location); err != nil {
		respondError(c, err)
		return
	}
	page, err := models.ListReconciliations(c.Request.Context(), a.db, filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// queryUTCDate parses a calendar date into the UTC-midnight form reconciliation dates are stored in.
func queryUTCDate(c *gin.Context, name string, loc *time.Location) (*time.Time, error) {
	t, ok, err := queryDate(c, name, loc)
	if err != nil || !ok {
		return nil, err
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}
