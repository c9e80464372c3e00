package sweep

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"picktrack/internal/clock"
	"picktrack/internal/events"
	"picktrack/internal/messaging/kafka"
	"picktrack/internal/metrics"
	"picktrack/internal/settings"
	"picktrack/internal/shared/contextutil"
	"picktrack/internal/shift"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IdleAnchorPolicy controls where a detected idle period starts.
type IdleAnchorPolicy int

const (
	// AnchorSweepTime opens the period at the moment the sweep noticed the
	// inactivity. Late sweeps under-report idle time but never fabricate an
	// interval the system did not observe.
	AnchorSweepTime IdleAnchorPolicy = iota
	// AnchorInferredStart backdates the period to last activity plus the
	// threshold, the instant the picker actually became idle.
	AnchorInferredStart
)

const (
	ReasonEndOfDay    = "end_of_day"
	ReasonMaxDuration = "max_duration_12h"
	ReasonInactivity  = "inactivity_10h"
)

// tenHourAnchorExclusions keeps closure bookkeeping from anchoring another
// closure: only genuine picker activity counts.
var tenHourAnchorExclusions = []string{
	shift.ActivityAutoCheckout,
	shift.ActivityAutoCheckout10h,
	shift.ActivityAutoCheckout12h,
	shift.ActivityCheckOut,
}

// Service reconciles time-derived shift state. Nothing here is scheduled by
// the database; the sweeps are invoked from the request gate and the worker
// and converge the stored state to what the clock says it should be.
type Service struct {
	db         *sql.DB
	shifts     shift.Repository
	idles      shift.IdlePeriodRepository
	activities shift.ActivityRepository
	outbox     kafka.OutboxRepository
	settings   settings.Service
	clock      clock.Clock
	anchor     IdleAnchorPolicy
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	shifts shift.Repository,
	idles shift.IdlePeriodRepository,
	activities shift.ActivityRepository,
	cfg settings.Service,
	clk clock.Clock,
	logger ...*zap.Logger,
) *Service {
	l := zap.L().Named("sweep.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("sweep.service")
	}
	return &Service{
		db:         db,
		shifts:     shifts,
		idles:      idles,
		activities: activities,
		settings:   cfg,
		clock:      clk,
		anchor:     AnchorSweepTime,
		logger:     l,
	}
}

// WithOutbox enables lifecycle event fan-out for auto closures.
func (s *Service) WithOutbox(outbox kafka.OutboxRepository) *Service {
	s.outbox = outbox
	return s
}

func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithAnchorPolicy(p IdleAnchorPolicy) *Service {
	s.anchor = p
	return s
}

// DetectIdle opens an idle period on every active shift whose picker has been
// silent for at least the configured threshold. Idempotent: a shift with an
// open period (idle or break) is skipped.
func (s *Service) DetectIdle(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.metrics.IncSweepRun("idle_detection", "error")
		return err
	}
	defer tx.Rollback()

	qshifts := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	qacts := s.activities.WithTx(tx)

	now := s.clock.Now()
	threshold := time.Duration(s.settings.IdleThresholdMinutes(ctx)) * time.Minute

	active, err := qshifts.FindAllActive(ctx)
	if err != nil {
		s.metrics.IncSweepRun("idle_detection", "error")
		return err
	}

	opened := 0
	for i := range active {
		sh := &active[i]

		open, err := qidles.FindOpenByShift(ctx, sh.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncSweepRun("idle_detection", "error")
			return err
		}
		if open != nil {
			continue
		}

		lastSeen := sh.CheckInTime
		if last, err := qacts.FindLatestByPicker(ctx, sh.PickerUsername); err == nil {
			lastSeen = last.Timestamp
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncSweepRun("idle_detection", "error")
			return err
		}

		if now.Sub(lastSeen) < threshold {
			continue
		}

		start := now
		if s.anchor == AnchorInferredStart {
			start = lastSeen.Add(threshold)
		}
		period := &shift.IdlePeriod{
			ID:        uuid.New(),
			ShiftID:   sh.ID,
			StartTime: start.UTC(),
			IsBreak:   false,
		}
		if err := qidles.Create(ctx, period); err != nil {
			s.metrics.IncSweepRun("idle_detection", "error")
			return err
		}
		opened++
		s.metrics.IncIdleOpened()
		s.logger.Info("idle period opened",
			zap.String("picker", sh.PickerUsername),
			zap.String("shift_id", sh.ID.String()),
			zap.Time("last_seen", lastSeen),
		)
	}

	if err := tx.Commit(); err != nil {
		s.metrics.IncSweepRun("idle_detection", "error")
		return err
	}
	s.metrics.IncSweepRun("idle_detection", "ok")
	if opened > 0 {
		s.logger.Info("idle detection sweep finished", zap.Int("opened", opened))
	}
	return nil
}

// CloseEndOfDay auto-closes shifts checked in earlier today (warehouse local
// time) once the business day has ended. The checkout is stamped at the
// end-of-day instant, not at the moment the sweep happened to run.
func (s *Service) CloseEndOfDay(ctx context.Context) error {
	loc := s.settings.Timezone(ctx)
	eodHour, eodMinute := s.settings.EndOfBusinessDay(ctx)

	nowLocal := s.clock.Now().In(loc)
	eodLocal := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), eodHour, eodMinute, 0, 0, loc)
	if nowLocal.Before(eodLocal) {
		s.metrics.IncSweepRun("end_of_day", "ok")
		return nil
	}
	eod := eodLocal.UTC()

	return s.closeWhere(ctx, "end_of_day", func(_ shift.ActivityRepository, sh *shift.Shift) (time.Time, bool, error) {
		checkInLocal := sh.CheckInTime.In(loc)
		sameDay := checkInLocal.Year() == nowLocal.Year() && checkInLocal.YearDay() == nowLocal.YearDay()
		if !sameDay || !sh.CheckInTime.Before(eod) {
			return time.Time{}, false, nil
		}
		return eod, true, nil
	}, shift.ActivityAutoCheckout, ReasonEndOfDay, "Automatically checked out at end of business day")
}

// CloseTwelveHour is the hard stop: any shift open for more than twelve hours
// is closed at the picker's last recorded activity, whatever its type, or at
// check-in plus twelve hours when there is none.
func (s *Service) CloseTwelveHour(ctx context.Context) error {
	now := s.clock.Now()

	return s.closeWhere(ctx, "twelve_hour", func(qacts shift.ActivityRepository, sh *shift.Shift) (time.Time, bool, error) {
		if now.Sub(sh.CheckInTime) <= 12*time.Hour {
			return time.Time{}, false, nil
		}
		at := sh.CheckInTime.Add(12 * time.Hour)
		if last, err := qacts.FindLatestByPicker(ctx, sh.PickerUsername); err == nil {
			at = last.Timestamp
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, err
		}
		return at, true, nil
	}, shift.ActivityAutoCheckout12h, ReasonMaxDuration, "Automatically checked out after exceeding 12 hours")
}

// CloseTenHour closes shifts open for at least ten hours at the last genuine
// picker activity. Auto-closure and checkout log entries do not count as
// activity here, so one sweep's bookkeeping can never anchor the next.
func (s *Service) CloseTenHour(ctx context.Context) error {
	now := s.clock.Now()

	return s.closeWhere(ctx, "ten_hour", func(qacts shift.ActivityRepository, sh *shift.Shift) (time.Time, bool, error) {
		if now.Sub(sh.CheckInTime) < 10*time.Hour {
			return time.Time{}, false, nil
		}
		at := sh.CheckInTime.Add(10 * time.Hour)
		if last, err := qacts.FindLatestByPickerExcluding(ctx, sh.PickerUsername, tenHourAnchorExclusions); err == nil {
			at = last.Timestamp
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, err
		}
		return at, true, nil
	}, shift.ActivityAutoCheckout10h, ReasonInactivity, "Automatically checked out due to prolonged inactivity")
}

// RunHourly runs the auto-closure bundle. Sweep order matters: end-of-day
// first so a same-day shift gets the end-of-day stamp, then the duration
// caps for whatever is left.
func (s *Service) RunHourly(ctx context.Context) error {
	return errors.Join(
		s.CloseEndOfDay(ctx),
		s.CloseTwelveHour(ctx),
		s.CloseTenHour(ctx),
	)
}

// RunAll runs every sweep, idle detection included.
func (s *Service) RunAll(ctx context.Context) error {
	return errors.Join(
		s.DetectIdle(ctx),
		s.RunHourly(ctx),
	)
}

// closeWhere scans active shifts and auto-closes those the decide function
// selects, in a single transaction. decide returns the checkout instant; its
// anchor reads go through the tx-bound activity repository so the whole sweep
// sees one snapshot.
func (s *Service) closeWhere(
	ctx context.Context,
	sweepName string,
	decide func(qacts shift.ActivityRepository, sh *shift.Shift) (time.Time, bool, error),
	activityType, reason, detail string,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.metrics.IncSweepRun(sweepName, "error")
		return err
	}
	defer tx.Rollback()

	qshifts := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	qacts := s.activities.WithTx(tx)

	active, err := qshifts.FindAllActive(ctx)
	if err != nil {
		s.metrics.IncSweepRun(sweepName, "error")
		return err
	}

	closed := 0
	for i := range active {
		sh := &active[i]

		at, ok, err := decide(qacts, sh)
		if err != nil {
			s.metrics.IncSweepRun(sweepName, "error")
			return err
		}
		if !ok {
			continue
		}
		at = at.UTC()
		if at.Before(sh.CheckInTime) {
			at = sh.CheckInTime
		}

		open, err := qidles.ListOpenByShift(ctx, sh.ID)
		if err != nil {
			s.metrics.IncSweepRun(sweepName, "error")
			return err
		}
		for j := range open {
			open[j].CloseAt(at)
			if err := qidles.Update(ctx, &open[j]); err != nil {
				s.metrics.IncSweepRun(sweepName, "error")
				return err
			}
		}

		sh.CheckOutTime = &at
		sh.Status = shift.StatusAutoClosed
		sh.TotalDurationMinutes = sh.CalculateDuration()
		if err := qshifts.Update(ctx, sh); err != nil {
			s.metrics.IncSweepRun(sweepName, "error")
			return err
		}

		details := fmt.Sprintf("%s at %s", detail, at.Format(time.RFC3339))
		if err := qacts.Create(ctx, &shift.ActivityLog{
			ID:             uuid.New(),
			PickerUsername: sh.PickerUsername,
			ActivityType:   activityType,
			Timestamp:      at,
			Details:        &details,
		}); err != nil {
			s.metrics.IncSweepRun(sweepName, "error")
			return err
		}

		if err := s.enqueueAutoClosed(ctx, tx, sh, reason); err != nil {
			s.metrics.IncSweepRun(sweepName, "error")
			return err
		}

		closed++
		s.metrics.IncAutoClosed(reason)
		s.logger.Info("shift auto-closed",
			zap.String("sweep", sweepName),
			zap.String("picker", sh.PickerUsername),
			zap.String("shift_id", sh.ID.String()),
			zap.Time("checkout_time", at),
		)
	}

	if err := tx.Commit(); err != nil {
		s.metrics.IncSweepRun(sweepName, "error")
		return err
	}
	s.metrics.IncSweepRun(sweepName, "ok")
	if closed > 0 {
		s.logger.Info("auto-closure sweep finished",
			zap.String("sweep", sweepName),
			zap.Int("closed", closed),
		)
	}
	return nil
}

func (s *Service) enqueueAutoClosed(ctx context.Context, tx *sql.Tx, sh *shift.Shift, reason string) error {
	if s.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(events.ShiftLifecycleEvent{
		EventType:      events.ShiftAutoClosed,
		ShiftID:        sh.ID.String(),
		PickerUsername: sh.PickerUsername,
		Status:         sh.Status,
		Reason:         reason,
		OccurredAt:     s.clock.Now(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "shift",
		AggregateID:   sh.ID.String(),
		EventType:     events.ShiftAutoClosed,
		Topic:         events.ShiftLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}
