package app

import (
	"database/sql"
	"net/http"

	"picktrack/internal/clock"
	"picktrack/internal/messaging/kafka"
	"picktrack/internal/metrics"
	"picktrack/internal/middleware"
	"picktrack/internal/reports"
	"picktrack/internal/settings"
	"picktrack/internal/shift"
	"picktrack/internal/sweep"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	m *metrics.Metrics,
) error {
	clk := clock.System()

	// --- Repositories ---
	shiftRepo := shift.NewRepository(gormDB)
	idleRepo := shift.NewIdlePeriodRepository(gormDB)
	activityRepo := shift.NewActivityRepository(gormDB)
	settingsRepo := settings.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	settingsService := settings.NewService(settingsRepo)
	shiftService := shift.NewServiceWithOutbox(db, shiftRepo, idleRepo, activityRepo, outboxRepo, clk)
	ledger := shift.NewLedger(db, shiftRepo, idleRepo, activityRepo, clk)
	recorder := shift.NewRecorder(db, shiftRepo, idleRepo, activityRepo, clk)
	sweepService := sweep.NewService(db, shiftRepo, idleRepo, activityRepo, settingsService, clk).
		WithOutbox(outboxRepo).
		WithMetrics(m)
	reportService := reports.NewService(shiftRepo, idleRepo)

	// --- Handlers ---
	shiftHandler := shift.NewHandler(shiftService, ledger, recorder, settingsService)
	settingsHandler := settings.NewHandler(settingsService)
	reportHandler := reports.NewHandler(reportService)

	// --- Global middleware ---
	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(zap.L()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// --- Routes ---
	api := router.Group("/api/v1")
	api.Use(middleware.ExtractUser())
	api.Use(middleware.RateLimitByPicker(rate.Limit(10), 30))
	api.Use(middleware.SweepGate(sweepService, rdb, zap.L()))
	{
		shift.RegisterRoutes(api, shiftHandler)
		settings.RegisterRoutes(api, settingsHandler)
		reports.RegisterRoutes(api, reportHandler)
	}

	return nil
}
