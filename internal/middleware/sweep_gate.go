package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	hourlySweepMarker = "sweep:hourly:marker"
	hourlySweepTTL    = time.Hour
)

// Check-in and check-out reconcile their own shift state inside the service
// transaction; running the gate first would race them for the same rows.
var sweepExemptPaths = map[string]struct{}{
	"/api/v1/shifts/check-in":  {},
	"/api/v1/shifts/check-out": {},
}

// SweepRunner is the slice of the sweep service the gate needs.
type SweepRunner interface {
	DetectIdle(ctx context.Context) error
	RunHourly(ctx context.Context) error
}

// SweepGate reconciles time-derived state before the handler reads it. Idle
// detection runs on every request; the heavier hourly bundle (end-of-day,
// 12-hour and 10-hour closures) runs at most once an hour, coordinated across
// instances with a redis marker. A sweep failure or panic is logged and the
// request proceeds: reconciliation is best-effort, request handling is not.
func SweepGate(runner SweepRunner, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("sweep.gate")
	var (
		mu         sync.Mutex
		lastHourly time.Time
	)

	runSafely := func(ctx context.Context, name string, fn func(context.Context) error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("sweep panicked", zap.String("sweep", name), zap.Any("panic", r))
			}
		}()
		if err := fn(ctx); err != nil {
			log.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
		}
	}

	hourlyDue := func(ctx context.Context) bool {
		if rdb != nil {
			ok, err := rdb.SetNX(ctx, hourlySweepMarker, time.Now().UTC().Format(time.RFC3339), hourlySweepTTL).Result()
			if err == nil {
				return ok
			}
			log.Warn("redis sweep marker unavailable, using local window", zap.Error(err))
		}
		mu.Lock()
		defer mu.Unlock()
		if time.Since(lastHourly) < hourlySweepTTL {
			return false
		}
		lastHourly = time.Now()
		return true
	}

	return func(c *gin.Context) {
		if _, exempt := sweepExemptPaths[c.Request.URL.Path]; exempt {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		runSafely(ctx, "idle_detection", runner.DetectIdle)
		if hourlyDue(ctx) {
			runSafely(ctx, "hourly_bundle", runner.RunHourly)
		}

		c.Next()
	}
}
