package shift

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
	"picktrack/internal/shared/contextutil"
	shifterrors "picktrack/internal/shift/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	// CheckIn opens a new shift for the picker. If one is already active it is
	// returned as-is: "already checked in" is idempotent success, not an error.
	CheckIn(ctx context.Context, username string, req CheckInRequest) (ShiftResponse, error)
	// CheckOut completes the active shift. An open system-detected idle period
	// is closed alongside; an open break is left as-is and must be ended by
	// the picker or an admin, never by checkout.
	CheckOut(ctx context.Context, username string, req CheckOutRequest, auto bool) (ShiftResponse, error)
	GetActive(ctx context.Context, username string) (*ShiftResponse, error)
	List(ctx context.Context, f ListFilter) ([]ShiftResponse, int64, error)
	GetDetail(ctx context.Context, id string) (ShiftDetailResponse, error)
	// AdminAdjust overwrites any subset of the shift record and latches the
	// admin_adjusted flag; it is never reset afterwards.
	AdminAdjust(ctx context.Context, id, adminUsername string, req AdjustShiftRequest) (ShiftResponse, error)
	// ForceCheckout closes an active shift on the picker's behalf, ending every
	// open idle period (breaks included) at the same instant.
	ForceCheckout(ctx context.Context, id, adminUsername string) (ShiftResponse, error)
}

type service struct {
	db         *sql.DB
	shifts     Repository
	idles      IdlePeriodRepository
	activities ActivityRepository
	outbox     kafka.OutboxRepository
	clock      clock.Clock
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	shifts Repository,
	idles IdlePeriodRepository,
	activities ActivityRepository,
	clk clock.Clock,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("shift.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.service")
	}
	return &service{
		db:         db,
		shifts:     shifts,
		idles:      idles,
		activities: activities,
		clock:      clk,
		logger:     l,
	}
}

func NewServiceWithOutbox(
	db *sql.DB,
	shifts Repository,
	idles IdlePeriodRepository,
	activities ActivityRepository,
	outbox kafka.OutboxRepository,
	clk clock.Clock,
	logger ...*zap.Logger,
) Service {
	svc := NewService(db, shifts, idles, activities, clk, logger...).(*service)
	svc.outbox = outbox
	return svc
}

func (s *service) CheckIn(ctx context.Context, username string, req CheckInRequest) (ShiftResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("check-in begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.shifts.WithTx(tx)
	now := s.clock.Now()

	existing, err := qtx.FindActiveByPicker(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return ShiftResponse{}, err
	}
	if err == nil {
		s.logger.Info("picker already has an active shift",
			zap.String("picker", username),
			zap.String("shift_id", existing.ID.String()),
		)
		return mapShiftToResponse(*existing), nil
	}

	row := &Shift{
		ID:                 uuid.New(),
		PickerUsername:     username,
		CheckInTime:        now,
		CheckInCoordinates: req.Coordinates,
		Status:             StatusActive,
	}

	if err := qtx.Create(ctx, row); err != nil {
		if isDuplicateActiveShift(err) {
			// Lost the race against a concurrent check-in: the constraint is
			// the authority, the winner's shift is the answer.
			tx.Rollback()
			winner, ferr := s.shifts.FindActiveByPicker(ctx, username)
			if ferr != nil {
				return ShiftResponse{}, ferr
			}
			return mapShiftToResponse(*winner), nil
		}
		s.logger.Error("check-in persist failed", zap.String("picker", username), zap.Error(err))
		return ShiftResponse{}, err
	}

	details := fmt.Sprintf("Shift started at %s", now.Format(time.RFC3339))
	if err := s.appendActivity(ctx, tx, username, ActivityCheckIn, now, &details); err != nil {
		return ShiftResponse{}, err
	}
	if err := s.enqueueLifecycleEvent(ctx, tx, row, events.ShiftCheckedIn, ""); err != nil {
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("check-in commit failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	s.logger.Info("picker checked in",
		zap.String("picker", username),
		zap.String("shift_id", row.ID.String()),
	)
	return mapShiftToResponse(*row), nil
}

func (s *service) CheckOut(ctx context.Context, username string, req CheckOutRequest, auto bool) (ShiftResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("check-out begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	now := s.clock.Now()

	row, err := qtx.FindActiveByPicker(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ShiftResponse{}, shifterrors.ErrNoActiveShift
		}
		return ShiftResponse{}, err
	}

	// Only the system-detected idle period; an open break survives checkout.
	if err := closeOpenIdle(ctx, qidles, row.ID, now); err != nil {
		return ShiftResponse{}, err
	}

	row.CheckOutTime = &now
	row.CheckOutCoordinates = req.Coordinates
	row.Status = StatusCompleted
	row.TotalDurationMinutes = row.CalculateDuration()

	if err := qtx.Update(ctx, row); err != nil {
		s.logger.Error("check-out persist failed", zap.String("picker", username), zap.Error(err))
		return ShiftResponse{}, err
	}

	details := fmt.Sprintf("Shift ended at %s", now.Format(time.RFC3339))
	if auto {
		details += " (automatic end-of-day checkout)"
	}
	if err := s.appendActivity(ctx, tx, username, ActivityCheckOut, now, &details); err != nil {
		return ShiftResponse{}, err
	}
	if err := s.enqueueLifecycleEvent(ctx, tx, row, events.ShiftCheckedOut, ""); err != nil {
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("check-out commit failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	s.logger.Info("picker checked out",
		zap.String("picker", username),
		zap.String("shift_id", row.ID.String()),
		zap.Intp("duration_minutes", row.TotalDurationMinutes),
	)
	return mapShiftToResponse(*row), nil
}

func (s *service) GetActive(ctx context.Context, username string) (*ShiftResponse, error) {
	row, err := s.shifts.FindActiveByPicker(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	resp := mapShiftToResponse(*row)
	return &resp, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]ShiftResponse, int64, error) {
	rows, total, err := s.shifts.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ShiftResponse, len(rows))
	for i, r := range rows {
		res[i] = mapShiftToResponse(r)
	}
	return res, total, nil
}

func (s *service) GetDetail(ctx context.Context, id string) (ShiftDetailResponse, error) {
	shiftID, err := uuid.Parse(id)
	if err != nil {
		return ShiftDetailResponse{}, shifterrors.ErrInvalidShiftID
	}

	row, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return ShiftDetailResponse{}, mapShiftLookupError(err)
	}

	periods, err := s.idles.ListByShift(ctx, shiftID)
	if err != nil {
		return ShiftDetailResponse{}, err
	}

	// Activities between check-in and check-out (or now, while still open).
	windowEnd := s.clock.Now()
	if row.CheckOutTime != nil {
		windowEnd = *row.CheckOutTime
	}
	acts, err := s.activities.ListByPickerBetween(ctx, row.PickerUsername, row.CheckInTime, windowEnd)
	if err != nil {
		return ShiftDetailResponse{}, err
	}

	detail := ShiftDetailResponse{
		Shift:       mapShiftToResponse(*row),
		IdlePeriods: make([]IdlePeriodResponse, len(periods)),
		Activities:  make([]ActivityResponse, len(acts)),
	}
	for i, p := range periods {
		detail.IdlePeriods[i] = mapIdlePeriodToResponse(p)
	}
	for i, a := range acts {
		detail.Activities[i] = mapActivityToResponse(a)
	}
	return detail, nil
}

func (s *service) AdminAdjust(ctx context.Context, id, adminUsername string, req AdjustShiftRequest) (ShiftResponse, error) {
	shiftID, err := uuid.Parse(id)
	if err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidShiftID
	}
	if req.Status != nil {
		switch *req.Status {
		case StatusActive, StatusCompleted, StatusAutoClosed:
		default:
			return ShiftResponse{}, shifterrors.ErrInvalidStatus
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("adjust begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.shifts.WithTx(tx)
	now := s.clock.Now()

	row, err := qtx.FindByID(ctx, shiftID)
	if err != nil {
		return ShiftResponse{}, mapShiftLookupError(err)
	}

	if req.CheckInTime != nil {
		t := req.CheckInTime.UTC()
		row.CheckInTime = t
	}
	if req.CheckOutTime != nil {
		t := req.CheckOutTime.UTC()
		row.CheckOutTime = &t
	}
	if req.CheckInCoordinates != nil {
		row.CheckInCoordinates = req.CheckInCoordinates
	}
	if req.CheckOutCoordinates != nil {
		row.CheckOutCoordinates = req.CheckOutCoordinates
	}
	if req.Status != nil {
		row.Status = *req.Status
	}

	if row.CheckOutTime != nil && row.CheckOutTime.Before(row.CheckInTime) {
		return ShiftResponse{}, shifterrors.ErrCheckOutBeforeCheckIn
	}

	row.AdminAdjusted = true
	row.AdjustmentBy = &adminUsername
	row.AdjustmentTime = &now
	row.AdjustmentNote = req.Note
	if row.CheckOutTime != nil {
		row.TotalDurationMinutes = row.CalculateDuration()
	}

	if err := qtx.Update(ctx, row); err != nil {
		s.logger.Error("adjust persist failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}

	details := fmt.Sprintf("Shift %s adjusted by admin %s", id, adminUsername)
	if req.Note != nil {
		details += " - Note: " + *req.Note
	}
	if err := s.appendActivity(ctx, tx, row.PickerUsername, ActivityAdminAdjustment, now, &details); err != nil {
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("adjust commit failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	s.logger.Info("shift adjusted",
		zap.String("shift_id", id),
		zap.String("admin", adminUsername),
		zap.String("picker", row.PickerUsername),
	)
	return mapShiftToResponse(*row), nil
}

func (s *service) ForceCheckout(ctx context.Context, id, adminUsername string) (ShiftResponse, error) {
	shiftID, err := uuid.Parse(id)
	if err != nil {
		return ShiftResponse{}, shifterrors.ErrInvalidShiftID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("force checkout begin tx failed", zap.Error(err))
		return ShiftResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.shifts.WithTx(tx)
	qidles := s.idles.WithTx(tx)
	now := s.clock.Now()

	row, err := qtx.FindByID(ctx, shiftID)
	if err != nil {
		return ShiftResponse{}, mapShiftLookupError(err)
	}
	if row.Status != StatusActive {
		return ShiftResponse{}, shifterrors.ErrShiftNotActive
	}

	// An admin checkout ends everything that is still open, breaks included.
	open, err := qidles.ListOpenByShift(ctx, shiftID)
	if err != nil {
		return ShiftResponse{}, err
	}
	for i := range open {
		open[i].CloseAt(now)
		if err := qidles.Update(ctx, &open[i]); err != nil {
			return ShiftResponse{}, err
		}
	}

	note := fmt.Sprintf("Admin forced checkout by %s", adminUsername)
	row.CheckOutTime = &now
	row.Status = StatusCompleted
	row.TotalDurationMinutes = row.CalculateDuration()
	row.AdminAdjusted = true
	row.AdjustmentBy = &adminUsername
	row.AdjustmentTime = &now
	row.AdjustmentNote = &note

	if err := qtx.Update(ctx, row); err != nil {
		s.logger.Error("force checkout persist failed", zap.String("shift_id", id), zap.Error(err))
		return ShiftResponse{}, err
	}

	details := fmt.Sprintf("Admin %s checked out picker from shift %s", adminUsername, id)
	if err := s.appendActivity(ctx, tx, row.PickerUsername, ActivityAdminCheckout, now, &details); err != nil {
		return ShiftResponse{}, err
	}
	if err := s.enqueueLifecycleEvent(ctx, tx, row, events.ShiftAdminCheckout, ""); err != nil {
		return ShiftResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("force checkout commit failed", zap.Error(err))
		return ShiftResponse{}, err
	}

	s.logger.Info("picker force checked out",
		zap.String("shift_id", id),
		zap.String("admin", adminUsername),
		zap.String("picker", row.PickerUsername),
	)
	return mapShiftToResponse(*row), nil
}

func (s *service) appendActivity(ctx context.Context, tx *sql.Tx, username, activityType string, at time.Time, details *string) error {
	qacts := s.activities.WithTx(tx)
	return qacts.Create(ctx, &ActivityLog{
		ID:             uuid.New(),
		PickerUsername: username,
		ActivityType:   activityType,
		Timestamp:      at,
		Details:        details,
	})
}

// enqueueLifecycleEvent appends an outbox row in the same transaction as the
// state change. A nil outbox repository disables event fan-out.
func (s *service) enqueueLifecycleEvent(ctx context.Context, tx *sql.Tx, row *Shift, eventType, reason string) error {
	if s.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(events.ShiftLifecycleEvent{
		EventType:      eventType,
		ShiftID:        row.ID.String(),
		PickerUsername: row.PickerUsername,
		Status:         row.Status,
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
		AggregateID:   row.ID.String(),
		EventType:     eventType,
		Topic:         events.ShiftLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}
