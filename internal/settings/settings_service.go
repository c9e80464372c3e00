package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	settingserrors "picktrack/internal/settings/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=settings_service.go -destination=mock/settings_service_mock.go -package=mock
type Service interface {
	Get(ctx context.Context, key string, def string) string
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]Setting, error)

	// Typed getters used by the reconciliation sweeps. Each falls back to a
	// documented default when the key is missing or malformed, so a broken
	// settings row can never stall reconciliation.
	IdleThresholdMinutes(ctx context.Context) int
	EndOfBusinessDay(ctx context.Context) (hour, minute int)
	Timezone(ctx context.Context) *time.Location
	RequireGPSCheck(ctx context.Context) bool
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("settings.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("settings.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) Get(ctx context.Context, key string, def string) string {
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("settings lookup failed", zap.String("key", key), zap.Error(err))
		}
		return def
	}
	return row.Value
}

func (s *service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return settingserrors.ErrInvalidKey
	}
	if err := validateValue(key, value); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, &Setting{Key: key, Value: value}); err != nil {
		s.logger.Error("settings upsert failed", zap.String("key", key), zap.Error(err))
		return err
	}
	s.logger.Info("setting updated", zap.String("key", key), zap.String("value", value))
	return nil
}

func (s *service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

func (s *service) IdleThresholdMinutes(ctx context.Context) int {
	raw := s.Get(ctx, KeyIdleThresholdMinutes, strconv.Itoa(DefaultIdleThresholdMinutes))
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return DefaultIdleThresholdMinutes
	}
	return v
}

func (s *service) EndOfBusinessDay(ctx context.Context) (int, int) {
	raw := s.Get(ctx, KeyEndOfBusinessDay, DefaultEndOfBusinessDay)
	h, m, err := parseHHMM(raw)
	if err != nil {
		h, m, _ = parseHHMM(DefaultEndOfBusinessDay)
	}
	return h, m
}

func (s *service) Timezone(ctx context.Context) *time.Location {
	name := s.Get(ctx, KeySystemTimezone, DefaultSystemTimezone)
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logger.Warn("invalid system timezone, falling back to default",
			zap.String("timezone", name), zap.Error(err))
		loc, err = time.LoadLocation(DefaultSystemTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

func (s *service) RequireGPSCheck(ctx context.Context) bool {
	return s.Get(ctx, KeyRequireGPSCheck, "false") == "true"
}

func validateValue(key, value string) error {
	switch key {
	case KeyIdleThresholdMinutes:
		v, err := strconv.Atoi(value)
		if err != nil || v < 1 {
			return settingserrors.ErrInvalidThreshold
		}
	case KeyEndOfBusinessDay:
		if _, _, err := parseHHMM(value); err != nil {
			return settingserrors.ErrInvalidTimeOfDay
		}
	case KeySystemTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return settingserrors.ErrInvalidTimezone
		}
	}
	return nil
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
