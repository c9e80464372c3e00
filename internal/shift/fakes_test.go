package shift

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeShiftRepo struct {
	createFn             func(ctx context.Context, s *Shift) error
	updateFn             func(ctx context.Context, s *Shift) error
	findByIDFn           func(ctx context.Context, id uuid.UUID) (*Shift, error)
	findActiveByPickerFn func(ctx context.Context, username string) (*Shift, error)
	findAllActiveFn      func(ctx context.Context) ([]Shift, error)
	listFn               func(ctx context.Context, f ListFilter) ([]Shift, int64, error)
}

func (f *fakeShiftRepo) WithTx(tx *sql.Tx) Repository                 { return f }
func (f *fakeShiftRepo) Create(ctx context.Context, s *Shift) error   { return f.createFn(ctx, s) }
func (f *fakeShiftRepo) Update(ctx context.Context, s *Shift) error   { return f.updateFn(ctx, s) }
func (f *fakeShiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return f.findByIDFn(ctx, id)
}
func (f *fakeShiftRepo) FindActiveByPicker(ctx context.Context, username string) (*Shift, error) {
	return f.findActiveByPickerFn(ctx, username)
}
func (f *fakeShiftRepo) FindAllActive(ctx context.Context) ([]Shift, error) {
	return f.findAllActiveFn(ctx)
}
func (f *fakeShiftRepo) List(ctx context.Context, flt ListFilter) ([]Shift, int64, error) {
	return f.listFn(ctx, flt)
}

type fakeIdleRepo struct {
	createFn              func(ctx context.Context, p *IdlePeriod) error
	updateFn              func(ctx context.Context, p *IdlePeriod) error
	findOpenByShiftFn     func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	findOpenIdleFn        func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	findOpenBreakFn       func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	listOpenByShiftFn     func(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error)
	listByShiftFn         func(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error)
	sumClosedMinutesFn    func(ctx context.Context, shiftID uuid.UUID) (int, error)
	countBreaksByShiftFn  func(ctx context.Context, shiftID uuid.UUID) (int64, error)
}

func (f *fakeIdleRepo) WithTx(tx *sql.Tx) IdlePeriodRepository { return f }
func (f *fakeIdleRepo) Create(ctx context.Context, p *IdlePeriod) error {
	return f.createFn(ctx, p)
}
func (f *fakeIdleRepo) Update(ctx context.Context, p *IdlePeriod) error {
	return f.updateFn(ctx, p)
}
func (f *fakeIdleRepo) FindOpenByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	return f.findOpenByShiftFn(ctx, shiftID)
}
func (f *fakeIdleRepo) FindOpenIdleByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	return f.findOpenIdleFn(ctx, shiftID)
}
func (f *fakeIdleRepo) FindOpenBreakByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	return f.findOpenBreakFn(ctx, shiftID)
}
func (f *fakeIdleRepo) ListOpenByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error) {
	return f.listOpenByShiftFn(ctx, shiftID)
}
func (f *fakeIdleRepo) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error) {
	return f.listByShiftFn(ctx, shiftID)
}
func (f *fakeIdleRepo) SumClosedMinutesByShift(ctx context.Context, shiftID uuid.UUID) (int, error) {
	return f.sumClosedMinutesFn(ctx, shiftID)
}
func (f *fakeIdleRepo) CountBreaksByShift(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	return f.countBreaksByShiftFn(ctx, shiftID)
}

// noOpenIdleRepo is the common baseline: no open periods anywhere.
func noOpenIdleRepo() *fakeIdleRepo {
	return &fakeIdleRepo{
		createFn: func(ctx context.Context, p *IdlePeriod) error { return nil },
		updateFn: func(ctx context.Context, p *IdlePeriod) error { return nil },
		findOpenByShiftFn: func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
			return nil, gorm.ErrRecordNotFound
		},
		findOpenIdleFn: func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
			return nil, gorm.ErrRecordNotFound
		},
		findOpenBreakFn: func(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
			return nil, gorm.ErrRecordNotFound
		},
		listOpenByShiftFn: func(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error) {
			return nil, nil
		},
	}
}

type fakeActivityRepo struct {
	createFn                  func(ctx context.Context, a *ActivityLog) error
	findLatestByPickerFn      func(ctx context.Context, username string) (*ActivityLog, error)
	findLatestExcludingFn     func(ctx context.Context, username string, excluded []string) (*ActivityLog, error)
	listByPickerBetweenFn     func(ctx context.Context, username string, from, to time.Time) ([]ActivityLog, error)
}

func (f *fakeActivityRepo) WithTx(tx *sql.Tx) ActivityRepository { return f }
func (f *fakeActivityRepo) Create(ctx context.Context, a *ActivityLog) error {
	return f.createFn(ctx, a)
}
func (f *fakeActivityRepo) FindLatestByPicker(ctx context.Context, username string) (*ActivityLog, error) {
	return f.findLatestByPickerFn(ctx, username)
}
func (f *fakeActivityRepo) FindLatestByPickerExcluding(ctx context.Context, username string, excluded []string) (*ActivityLog, error) {
	return f.findLatestExcludingFn(ctx, username, excluded)
}
func (f *fakeActivityRepo) ListByPickerBetween(ctx context.Context, username string, from, to time.Time) ([]ActivityLog, error) {
	return f.listByPickerBetweenFn(ctx, username, from, to)
}

// recordingActivityRepo collects every appended log entry.
func recordingActivityRepo() (*fakeActivityRepo, *[]ActivityLog) {
	var logged []ActivityLog
	repo := &fakeActivityRepo{
		createFn: func(ctx context.Context, a *ActivityLog) error {
			logged = append(logged, *a)
			return nil
		},
		findLatestByPickerFn: func(ctx context.Context, username string) (*ActivityLog, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	return repo, &logged
}
