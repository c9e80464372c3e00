package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"picktrack/internal/clock"
	shifterrors "picktrack/internal/shift/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger manages the idle periods inside a picker's active shift: break
// start/end from the picker's side, and idle open/close from the sweeps.
type Ledger interface {
	// StartBreak opens a break for the picker's active shift. If any period
	// is already open it is converted in place with the new reason, keeping
	// its original start time, so idle-then-break never overlaps.
	StartBreak(ctx context.Context, username string, req StartBreakRequest) (IdlePeriodResponse, error)
	// EndBreak closes the open break on the picker's active shift.
	EndBreak(ctx context.Context, username string) (IdlePeriodResponse, error)
	// ActiveBreak returns the open break on the picker's active shift, or nil.
	ActiveBreak(ctx context.Context, username string) (*IdlePeriodResponse, error)
	// OpenIdle opens a system-detected idle period on the shift starting at
	// the given instant. Idempotent: an already-open period is returned as-is.
	OpenIdle(ctx context.Context, shiftID uuid.UUID, at time.Time) (IdlePeriod, bool, error)
}

type ledger struct {
	db         *sql.DB
	shifts     Repository
	idles      IdlePeriodRepository
	activities ActivityRepository
	clock      clock.Clock
	logger     *zap.Logger
}

func NewLedger(
	db *sql.DB,
	shifts Repository,
	idles IdlePeriodRepository,
	activities ActivityRepository,
	clk clock.Clock,
	logger ...*zap.Logger,
) Ledger {
	l := zap.L().Named("shift.ledger")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.ledger")
	}
	return &ledger{
		db:         db,
		shifts:     shifts,
		idles:      idles,
		activities: activities,
		clock:      clk,
		logger:     l,
	}
}

func (s *ledger) StartBreak(ctx context.Context, username string, req StartBreakRequest) (IdlePeriodResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("start break begin tx failed", zap.Error(err))
		return IdlePeriodResponse{}, err
	}
	defer tx.Rollback()

	qshifts := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	now := s.clock.Now()

	active, err := qshifts.FindActiveByPicker(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IdlePeriodResponse{}, shifterrors.ErrNoActiveShift
		}
		return IdlePeriodResponse{}, err
	}

	open, err := qidles.FindOpenByShift(ctx, active.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return IdlePeriodResponse{}, err
	}

	var period *IdlePeriod
	if open != nil {
		// An open period of either flavor converts in place; the start time is
		// the true beginning of the inactivity, not the moment the picker
		// pressed the button. Starting a break during a break overwrites the
		// reason and logs again.
		open.IsBreak = true
		open.BreakReason = req.BreakReason
		if err := qidles.Update(ctx, open); err != nil {
			return IdlePeriodResponse{}, err
		}
		period = open
		s.logger.Info("open period converted to break",
			zap.String("picker", username),
			zap.String("period_id", open.ID.String()),
		)
	} else {
		period = &IdlePeriod{
			ID:          uuid.New(),
			ShiftID:     active.ID,
			StartTime:   now,
			IsBreak:     true,
			BreakReason: req.BreakReason,
		}
		if err := qidles.Create(ctx, period); err != nil {
			return IdlePeriodResponse{}, err
		}
	}

	if err := s.appendActivity(ctx, tx, username, ActivityStartBreak, now, req.BreakReason); err != nil {
		return IdlePeriodResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("start break commit failed", zap.Error(err))
		return IdlePeriodResponse{}, err
	}
	return mapIdlePeriodToResponse(*period), nil
}

func (s *ledger) EndBreak(ctx context.Context, username string) (IdlePeriodResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("end break begin tx failed", zap.Error(err))
		return IdlePeriodResponse{}, err
	}
	defer tx.Rollback()

	qshifts := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	now := s.clock.Now()

	active, err := qshifts.FindActiveByPicker(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IdlePeriodResponse{}, shifterrors.ErrNoActiveShift
		}
		return IdlePeriodResponse{}, err
	}

	open, err := qidles.FindOpenBreakByShift(ctx, active.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IdlePeriodResponse{}, shifterrors.ErrNoActiveBreak
		}
		return IdlePeriodResponse{}, err
	}

	open.CloseAt(now)
	if err := qidles.Update(ctx, open); err != nil {
		return IdlePeriodResponse{}, err
	}

	details := fmt.Sprintf("Break ended after %d minutes", *open.DurationMinutes)
	if err := s.appendActivity(ctx, tx, username, ActivityEndBreak, now, &details); err != nil {
		return IdlePeriodResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("end break commit failed", zap.Error(err))
		return IdlePeriodResponse{}, err
	}

	s.logger.Info("break ended",
		zap.String("picker", username),
		zap.String("period_id", open.ID.String()),
		zap.Intp("duration_minutes", open.DurationMinutes),
	)
	return mapIdlePeriodToResponse(*open), nil
}

func (s *ledger) ActiveBreak(ctx context.Context, username string) (*IdlePeriodResponse, error) {
	active, err := s.shifts.FindActiveByPicker(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shifterrors.ErrNoActiveShift
		}
		return nil, err
	}

	open, err := s.idles.FindOpenBreakByShift(ctx, active.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	resp := mapIdlePeriodToResponse(*open)
	return &resp, nil
}

func (s *ledger) OpenIdle(ctx context.Context, shiftID uuid.UUID, at time.Time) (IdlePeriod, bool, error) {
	open, err := s.idles.FindOpenByShift(ctx, shiftID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return IdlePeriod{}, false, err
	}
	if open != nil {
		return *open, false, nil
	}

	period := &IdlePeriod{
		ID:        uuid.New(),
		ShiftID:   shiftID,
		StartTime: at.UTC(),
		IsBreak:   false,
	}
	if err := s.idles.Create(ctx, period); err != nil {
		return IdlePeriod{}, false, err
	}
	return *period, true, nil
}

func (s *ledger) appendActivity(ctx context.Context, tx *sql.Tx, username, activityType string, at time.Time, details *string) error {
	return s.activities.WithTx(tx).Create(ctx, &ActivityLog{
		ID:             uuid.New(),
		PickerUsername: username,
		ActivityType:   activityType,
		Timestamp:      at,
		Details:        details,
	})
}

// closeOpenIdle ends the open system-detected idle period on the shift, if
// any. Open breaks are never touched here.
func closeOpenIdle(ctx context.Context, idles IdlePeriodRepository, shiftID uuid.UUID, at time.Time) error {
	open, err := idles.FindOpenIdleByShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	open.CloseAt(at)
	return idles.Update(ctx, open)
}
