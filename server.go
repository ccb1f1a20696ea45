package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/barstock_backend/config"
	"github.com/mmdatafocus/barstock_backend/middlewares"
	"github.com/mmdatafocus/barstock_backend/models"
	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/mmdatafocus/barstock_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app carries the dependencies every handler needs.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	cache  *config.RedisStore
	issuer *utils.TokenIssuer
	closer *workflow.ShiftCloser
	// images is nil when GCS is not configured.
	images objectStore
}

func newRouter(a *app) *gin.Engine {
	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	if len(a.cfg.CorsOrigins) > 0 {
		corsConfig.AllowOrigins = a.cfg.CorsOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	if a.cfg.RateLimit.Enabled {
		r.Use(middlewares.NewRateLimiter(a.cache.Client(), a.cfg.RateLimit).Middleware())
	}
	r.Use(customErrorLogger(a.logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", a.registerHandler)
	auth.POST("/login", a.loginHandler)

	secured := api.Group("")
	secured.Use(middlewares.AuthMiddleware(a.issuer, a.db, a.cache))
	manager := middlewares.RequireManager()

	secured.POST("/auth/logout", a.logoutHandler)
	secured.GET("/auth/me", a.meHandler)
	secured.GET("/users", manager, a.listUsersHandler)
	secured.POST("/users", manager, a.createStaffHandler)
	secured.PATCH("/users/:id/active", middlewares.RequireOwner(), a.setUserActiveHandler)

	secured.GET("/products", a.listProductsHandler)
	secured.GET("/products/low-stock", a.lowStockHandler)
	secured.GET("/products/:id", a.getProductHandler)
	secured.POST("/products", manager, a.createProductHandler)
	secured.PATCH("/products/:id", manager, a.updateProductHandler)
	secured.POST("/products/:id/image", manager, a.uploadProductImageHandler)

	secured.GET("/stock-movements", a.listStockMovementsHandler)
	secured.POST("/stock-movements", a.recordStockMovementHandler)

	secured.POST("/sales", a.createSalesHandler)
	secured.GET("/shifts/:id/sales", a.listShiftSalesHandler)
	secured.POST("/shifts/:id/sales/import", a.importSalesHandler)

	secured.POST("/shifts", a.openShiftHandler)
	secured.GET("/shifts", a.listShiftsHandler)
	secured.GET("/shifts/daily", a.dailyShiftsHandler)
	secured.GET("/shifts/:id", a.getShiftHandler)
	secured.POST("/shifts/:id/close", a.closeShiftHandler)

	secured.GET("/reconciliations", manager, a.listReconciliationsHandler)

	secured.GET("/loss-reports", manager, a.listLossReportsHandler)
	secured.GET("/loss-reports/summary", manager, a.lossSummaryHandler)
	secured.GET("/loss-reports/export", manager, a.exportLossReportsHandler)
	secured.PATCH("/loss-reports/:id/review", manager, a.reviewLossReportHandler)

	secured.GET("/suppliers", a.listSuppliersHandler)
	secured.GET("/suppliers/:id", a.getSupplierHandler)
	secured.POST("/suppliers", manager, a.createSupplierHandler)
	secured.PATCH("/suppliers/:id", manager, a.updateSupplierHandler)
	secured.DELETE("/suppliers/:id", manager, a.deleteSupplierHandler)

	secured.GET("/purchase-orders", manager, a.listPurchaseOrdersHandler)
	secured.GET("/purchase-orders/:id", manager, a.getPurchaseOrderHandler)
	secured.POST("/purchase-orders", manager, a.createPurchaseOrderHandler)
	secured.PATCH("/purchase-orders/:id", manager, a.updatePurchaseOrderHandler)
	secured.POST("/purchase-orders/:id/receive", manager, a.receivePurchaseOrderHandler)

	secured.GET("/dashboard", manager, a.dashboardHandler)
	secured.GET("/dashboard/owner", middlewares.RequireOwner(), a.ownerDashboardHandler)

	ops := secured.Group("/internal/ops", middlewares.RequireOwner())
	ops.GET("/outbox", a.outboxStatusHandler)
	ops.POST("/outbox/replay", a.outboxReplayHandler)

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	cfg := config.LoadConfig()
	logger := config.NewLogger(cfg)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	db, err := config.ConnectDatabaseWithRetry(cfg)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Fatal(err.Error())
	}
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can block tables; production runs it as a separate job.
	if !cfg.SkipMigrations {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	cache := config.ConnectRedisWithRetry(sigCtx, cfg, 5)
	defer func() { _ = cache.Close() }()

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if cfg.PubSub.Enabled() {
		publisher, err := config.NewPubSubPublisher(sigCtx, cfg.PubSub)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Fatal(err.Error())
		}
		defer publisher.Close()
		go workflow.NewOutboxDispatcher(db, logger, publisher).Run(dispatcherCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("pub/sub not configured; loss alerts stay in the outbox")
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		cache:  cache,
		issuer: utils.NewTokenIssuer(cfg.Auth.JwtSecret, cfg.Auth.TokenLifespan),
		closer: workflow.NewShiftCloser(db, logger, cache, cfg.Location),
	}
	if cfg.Storage.Enabled() {
		store, err := config.NewGCSStore(sigCtx, cfg.Storage)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "storage"}).Fatal(err.Error())
		}
		defer func() { _ = store.Close() }()
		a.images = store
	} else {
		logger.WithFields(logrus.Fields{"field": "storage"}).Warn("GCS_BUCKET not set; product image upload disabled")
	}
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(a),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{"port": cfg.Port, "environment": cfg.Environment}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// stop background work before draining requests
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.FullPath(),
				"status":         c.Writer.Status(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
