package shift

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"picktrack/internal/clock"
	shifterrors "picktrack/internal/shift/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestService_CheckIn_CreatesShift(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	ctx := context.Background()

	var saved *Shift
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(ctx context.Context, s *Shift) error { saved = s; return nil },
	}
	acts, logged := recordingActivityRepo()

	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clk)

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.CheckIn(ctx, "alice", CheckInRequest{})
	assert.NoError(t, err)
	assert.Equal(t, "alice", resp.PickerUsername)
	assert.Equal(t, StatusActive, resp.Status)
	assert.Equal(t, now, saved.CheckInTime)
	assert.Len(t, *logged, 1)
	assert.Equal(t, ActivityCheckIn, (*logged)[0].ActivityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckIn_Idempotent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	existing := &Shift{
		ID:             uuid.New(),
		PickerUsername: "alice",
		CheckInTime:    time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Status:         StatusActive,
	}
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return existing, nil
		},
		createFn: func(ctx context.Context, s *Shift) error {
			t.Fatal("create must not be called when a shift is already active")
			return nil
		},
	}
	acts, logged := recordingActivityRepo()

	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	mock.ExpectBegin()
	mock.ExpectRollback()
	resp, err := svc.CheckIn(context.Background(), "alice", CheckInRequest{})
	assert.NoError(t, err)
	assert.Equal(t, existing.ID.String(), resp.ID)
	assert.Empty(t, *logged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckIn_LosesRaceToConstraint(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	winner := &Shift{
		ID:             uuid.New(),
		PickerUsername: "alice",
		CheckInTime:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:         StatusActive,
	}
	calls := 0
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			calls++
			if calls == 1 {
				// The other request has not committed yet.
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, s *Shift) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_shifts_picker_active"}
		},
	}
	acts, _ := recordingActivityRepo()

	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	mock.ExpectBegin()
	mock.ExpectRollback()
	resp, err := svc.CheckIn(context.Background(), "alice", CheckInRequest{})
	assert.NoError(t, err)
	assert.Equal(t, winner.ID.String(), resp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckOut_ClosesShiftAndOpenIdle(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	checkIn := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 10, 17, 30, 45, 0, time.UTC)
	clk := clock.NewFake(now)

	active := &Shift{ID: uuid.New(), PickerUsername: "alice", CheckInTime: checkIn, Status: StatusActive}
	var savedShift *Shift
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return active, nil
		},
		updateFn: func(ctx context.Context, s *Shift) error { savedShift = s; return nil },
	}

	openIdle := &IdlePeriod{ID: uuid.New(), ShiftID: active.ID, StartTime: now.Add(-20 * time.Minute)}
	var savedIdle *IdlePeriod
	idles := noOpenIdleRepo()
	idles.findOpenIdleFn = func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
		return openIdle, nil
	}
	idles.updateFn = func(ctx context.Context, p *IdlePeriod) error { savedIdle = p; return nil }

	acts, logged := recordingActivityRepo()
	svc := NewService(db, shifts, idles, acts, clk)

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.CheckOut(context.Background(), "alice", CheckOutRequest{}, false)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	// 8h30m45s floors to 510 whole minutes.
	assert.Equal(t, 510, *savedShift.TotalDurationMinutes)
	assert.NotNil(t, savedIdle.EndTime)
	assert.Equal(t, 20, *savedIdle.DurationMinutes)
	assert.Len(t, *logged, 1)
	assert.Equal(t, ActivityCheckOut, (*logged)[0].ActivityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckOut_LeavesOpenBreakDangling(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	active := &Shift{
		ID:             uuid.New(),
		PickerUsername: "alice",
		CheckInTime:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:         StatusActive,
	}
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return active, nil
		},
		updateFn: func(ctx context.Context, s *Shift) error { return nil },
	}

	// FindOpenIdleByShift only sees is_break=false rows, so an open break
	// reads as "nothing to close".
	idles := noOpenIdleRepo()
	idles.updateFn = func(ctx context.Context, p *IdlePeriod) error {
		t.Fatal("checkout must not touch an open break")
		return nil
	}

	acts, _ := recordingActivityRepo()
	svc := NewService(db, shifts, idles, acts, clock.NewFake(time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)))

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.CheckOut(context.Background(), "alice", CheckOutRequest{}, false)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CheckOut_NoActiveShift(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	acts, _ := recordingActivityRepo()
	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.CheckOut(context.Background(), "alice", CheckOutRequest{}, false)
	assert.ErrorIs(t, err, shifterrors.ErrNoActiveShift)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_AdminAdjust(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	shiftID := uuid.New()
	row := &Shift{
		ID:             shiftID,
		PickerUsername: "alice",
		CheckInTime:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:         StatusActive,
	}
	var saved *Shift
	shifts := &fakeShiftRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*Shift, error) { return row, nil },
		updateFn:   func(ctx context.Context, s *Shift) error { saved = s; return nil },
	}
	acts, logged := recordingActivityRepo()
	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	checkOut := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	status := StatusCompleted
	note := "forgot to check out"

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.AdminAdjust(context.Background(), shiftID.String(), "boss", AdjustShiftRequest{
		CheckOutTime: &checkOut,
		Status:       &status,
		Note:         &note,
	})
	assert.NoError(t, err)
	assert.True(t, resp.AdminAdjusted)
	assert.Equal(t, "boss", *saved.AdjustmentBy)
	assert.Equal(t, 480, *saved.TotalDurationMinutes)
	assert.Len(t, *logged, 1)
	assert.Equal(t, ActivityAdminAdjustment, (*logged)[0].ActivityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_AdminAdjust_RejectsCheckOutBeforeCheckIn(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	shiftID := uuid.New()
	row := &Shift{
		ID:          shiftID,
		CheckInTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:      StatusActive,
	}
	shifts := &fakeShiftRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*Shift, error) { return row, nil },
	}
	acts, _ := recordingActivityRepo()
	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	early := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.AdminAdjust(context.Background(), shiftID.String(), "boss", AdjustShiftRequest{CheckOutTime: &early})
	assert.ErrorIs(t, err, shifterrors.ErrCheckOutBeforeCheckIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ForceCheckout_ClosesEverythingOpen(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	shiftID := uuid.New()
	row := &Shift{
		ID:             shiftID,
		PickerUsername: "alice",
		CheckInTime:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Status:         StatusActive,
	}
	shifts := &fakeShiftRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*Shift, error) { return row, nil },
		updateFn:   func(ctx context.Context, s *Shift) error { return nil },
	}

	openBreak := IdlePeriod{ID: uuid.New(), ShiftID: shiftID, StartTime: now.Add(-30 * time.Minute), IsBreak: true}
	var closed []IdlePeriod
	idles := noOpenIdleRepo()
	idles.listOpenByShiftFn = func(ctx context.Context, id uuid.UUID) ([]IdlePeriod, error) {
		return []IdlePeriod{openBreak}, nil
	}
	idles.updateFn = func(ctx context.Context, p *IdlePeriod) error {
		closed = append(closed, *p)
		return nil
	}

	acts, logged := recordingActivityRepo()
	svc := NewService(db, shifts, idles, acts, clock.NewFake(now))

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := svc.ForceCheckout(context.Background(), shiftID.String(), "boss")
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.True(t, resp.AdminAdjusted)
	assert.Contains(t, *resp.AdjustmentNote, "boss")
	assert.Len(t, closed, 1)
	assert.NotNil(t, closed[0].EndTime)
	assert.Len(t, *logged, 1)
	assert.Equal(t, ActivityAdminCheckout, (*logged)[0].ActivityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ForceCheckout_RequiresActiveShift(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	shiftID := uuid.New()
	row := &Shift{ID: shiftID, Status: StatusCompleted}
	shifts := &fakeShiftRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*Shift, error) { return row, nil },
	}
	acts, _ := recordingActivityRepo()
	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.ForceCheckout(context.Background(), shiftID.String(), "boss")
	assert.ErrorIs(t, err, shifterrors.ErrShiftNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetActive_NoShiftIsNotAnError(t *testing.T) {
	var db *sql.DB
	shifts := &fakeShiftRepo{
		findActiveByPickerFn: func(ctx context.Context, username string) (*Shift, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	acts, _ := recordingActivityRepo()
	svc := NewService(db, shifts, noOpenIdleRepo(), acts, clock.NewFake(time.Now()))

	resp, err := svc.GetActive(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Nil(t, resp)
}
