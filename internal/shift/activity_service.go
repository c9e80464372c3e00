package shift

import (
	"context"
	"database/sql"
	"errors"

	"picktrack/internal/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder appends picker activity facts. Every recorded activity also ends
// the open system-detected idle period on the picker's active shift, because
// the picker has just proven they are not idle.
type Recorder interface {
	Record(ctx context.Context, username string, req RecordActivityRequest) (ActivityResponse, error)
}

type recorder struct {
	db         *sql.DB
	shifts     Repository
	idles      IdlePeriodRepository
	activities ActivityRepository
	clock      clock.Clock
	logger     *zap.Logger
}

func NewRecorder(
	db *sql.DB,
	shifts Repository,
	idles IdlePeriodRepository,
	activities ActivityRepository,
	clk clock.Clock,
	logger ...*zap.Logger,
) Recorder {
	l := zap.L().Named("shift.recorder")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.recorder")
	}
	return &recorder{
		db:         db,
		shifts:     shifts,
		idles:      idles,
		activities: activities,
		clock:      clk,
		logger:     l,
	}
}

func (s *recorder) Record(ctx context.Context, username string, req RecordActivityRequest) (ActivityResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("record activity begin tx failed", zap.Error(err))
		return ActivityResponse{}, err
	}
	defer tx.Rollback()

	qshifts := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	now := s.clock.Now()

	// Activity outside a shift is still worth keeping; only the idle closure
	// needs an active shift.
	active, err := qshifts.FindActiveByPicker(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ActivityResponse{}, err
	}
	if active != nil {
		if err := closeOpenIdle(ctx, qidles, active.ID, now); err != nil {
			return ActivityResponse{}, err
		}
	}

	row := &ActivityLog{
		ID:             uuid.New(),
		PickerUsername: username,
		ActivityType:   req.ActivityType,
		Timestamp:      now,
		InvoiceNo:      req.InvoiceNo,
		ItemCode:       req.ItemCode,
		Details:        req.Details,
	}
	if err := s.activities.WithTx(tx).Create(ctx, row); err != nil {
		s.logger.Error("record activity persist failed", zap.String("picker", username), zap.Error(err))
		return ActivityResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("record activity commit failed", zap.Error(err))
		return ActivityResponse{}, err
	}
	return mapActivityToResponse(*row), nil
}
