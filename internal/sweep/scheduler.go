package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunScheduler drives the sweeps on a fixed interval until the context is
// cancelled. It backstops the request gate: a quiet system with no incoming
// requests still converges.
func (s *Service) RunScheduler(ctx context.Context, interval time.Duration) {
	log := s.logger.Named("scheduler")
	log.Info("sweep scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweep scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunAll(ctx); err != nil {
				log.Error("scheduled sweep failed", zap.Error(err))
			}
		}
	}
}
