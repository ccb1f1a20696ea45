package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/mmdatafocus/barstock_backend/workflow"
)

// statusFor maps domain errors to HTTP status codes. Anything unrecognised is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound), errors.Is(err, workflow.ErrShiftNotInLedger):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorUnauthorized), errors.Is(err, utils.ErrorBarIdRequired),
		errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrorForbidden), errors.Is(err, models.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, models.ErrEmailTaken), errors.Is(err, utils.ErrorDuplicate):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorInvalidInput),
		errors.Is(err, workflow.ErrShiftAlreadyClosed),
		errors.Is(err, workflow.ErrShiftWindowOpen),
		errors.Is(err, models.ErrOpenShiftExists):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		respondInternal(c, err)
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// respondInternal hides the cause from the client; customErrorLogger records it.
func respondInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
			return false
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pageRequest(c *gin.Context) models.PageRequest {
	var page models.PageRequest
	_ = c.ShouldBindQuery(&page)
	return page
}

// queryDate parses YYYY-MM-DD in loc. ok is false when the parameter is absent.
func queryDate(c *gin.Context, name string, loc *time.Location) (t *time.Time, ok bool, err error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, false, utils.NewInputError(name + " must be YYYY-MM-DD")
	}
	return &parsed, true, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
