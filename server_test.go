package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/mmdatafocus/barstock_backend/workflow"
	"github.com/sirupsen/logrus"
)

func testApp() *app {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Environment: "test", Location: time.UTC}
	return &app{
		cfg:    cfg,
		logger: logrus.New(),
		issuer: utils.NewTokenIssuer("test-secret", time.Hour),
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{utils.ErrorRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("load shift: %w", utils.ErrorRecordNotFound), http.StatusNotFound},
		{models.ErrInvalidCredentials, http.StatusUnauthorized},
		{models.ErrUserInactive, http.StatusForbidden},
		{models.ErrEmailTaken, http.StatusConflict},
		{workflow.ErrShiftAlreadyClosed, http.StatusBadRequest},
		{workflow.ErrShiftNotInLedger, http.StatusNotFound},
		{utils.NewInputError("quantity must be positive"), http.StatusBadRequest},
		{utils.NewNotFoundError("product"), http.StatusNotFound},
		{utils.NewDuplicateError("duplicate name"), http.StatusConflict},
		{utils.NewForbiddenError("only owners can create managers"), http.StatusForbidden},
		{utils.ErrorBarIdRequired, http.StatusUnauthorized},
		{errors.New("quantity must be positive"), http.StatusInternalServerError},
		{fmt.Errorf("create reconciliation for p1: %w", errors.New("Error 2006 (HY000): MySQL server has gone away")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestRespondError_HidesStoreFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err      error
		want     int
		wantBody string
	}{
		{fmt.Errorf("update stock for p1: %w", errors.New("Error 2006 (HY000): MySQL server has gone away")), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{utils.NewNotFoundError("product"), http.StatusNotFound, `{"error":"product not found"}`},
		{utils.NewInputError("stock count cannot be negative"), http.StatusBadRequest, `{"error":"stock count cannot be negative"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		if w.Code != tc.want {
			t.Fatalf("respondError(%v) status = %d, want %d", tc.err, w.Code, tc.want)
		}
		if w.Body.String() != tc.wantBody {
			t.Fatalf("respondError(%v) body = %s, want %s", tc.err, w.Body.String(), tc.wantBody)
		}
		if len(c.Errors) != 1 {
			t.Fatalf("respondError(%v) recorded %d errors, want 1", tc.err, len(c.Errors))
		}
	}
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	r := newRouter(testApp())

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusNoContent},
		{http.MethodGet, "/api/products", http.StatusUnauthorized},
		{http.MethodPost, "/api/shifts/abc/close", http.StatusUnauthorized},
		{http.MethodPost, "/api/shifts/abc/sales/import", http.StatusUnauthorized},
		{http.MethodPost, "/api/products/abc/image", http.StatusUnauthorized},
		{http.MethodPost, "/api/purchase-orders/abc/receive", http.StatusUnauthorized},
		{http.MethodGet, "/api/suppliers", http.StatusUnauthorized},
		{http.MethodGet, "/api/dashboard/owner", http.StatusUnauthorized},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(c.method, c.path, nil))
		if w.Code != c.want {
			t.Fatalf("%s %s = %d, want %d", c.method, c.path, w.Code, c.want)
		}
	}
}

func TestRouter_RejectsForeignToken(t *testing.T) {
	r := newRouter(testApp())
	token, err := utils.NewTokenIssuer("other-secret", time.Hour).Generate("u1", "b1", "owner", "Owner")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/loss-reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRouter_LoginValidation(t *testing.T) {
	r := newRouter(testApp())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
