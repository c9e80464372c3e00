package app

import (
	"os"

	"picktrack/internal/metrics"
	"picktrack/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BuildApp(router *gin.Engine) error {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}
	zap.L().Info("database connection established")

	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// Redis is optional: without it the hourly sweep gate falls back to a
	// process-local window.
	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		zap.L().Warn("redis unavailable, sweep gate will use local coordination", zap.Error(err))
		redisClient = nil
	} else {
		zap.L().Info("redis connection established")
	}

	m := metrics.New("picktrack")

	return registerModules(router, db, gormDB, redisClient, m)
}
