package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picktrack/internal/clock"
	"picktrack/internal/messaging/kafka"
	"picktrack/internal/messaging/kafka/producer"
	"picktrack/internal/settings"
	"picktrack/internal/shared/connection"
	"picktrack/internal/shift"
	"picktrack/internal/sweep"

	"go.uber.org/zap"
)

// RunWorker drives the background side of the system: the outbox relay and
// the sweep scheduler that converges state when no requests are arriving.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

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

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	shiftRepo := shift.NewRepository(gormDB)
	idleRepo := shift.NewIdlePeriodRepository(gormDB)
	activityRepo := shift.NewActivityRepository(gormDB)
	settingsService := settings.NewService(settings.NewRepository(gormDB))

	sweepService := sweep.NewService(sqlDB, shiftRepo, idleRepo, activityRepo, settingsService, clock.System()).
		WithOutbox(outboxRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	sweepInterval := 5 * time.Minute
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sweepInterval = d
		}
	}
	go sweepService.RunScheduler(ctx, sweepInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}
