package shift

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=idle_period_repo.go -destination=mock/idle_period_repo_mock.go -package=mock
type IdlePeriodRepository interface {
	WithTx(tx *sql.Tx) IdlePeriodRepository
	Create(ctx context.Context, p *IdlePeriod) error
	Update(ctx context.Context, p *IdlePeriod) error
	// FindOpenByShift returns the single open period of any flavor.
	FindOpenByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	// FindOpenIdleByShift returns the open period only if it is system-detected
	// idle (is_break=false). Breaks are never closed through this path.
	FindOpenIdleByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	FindOpenBreakByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error)
	ListOpenByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error)
	SumClosedMinutesByShift(ctx context.Context, shiftID uuid.UUID) (int, error)
	CountBreaksByShift(ctx context.Context, shiftID uuid.UUID) (int64, error)
}

type idlePeriodRepository struct {
	db *gorm.DB
}

func NewIdlePeriodRepository(db *gorm.DB) IdlePeriodRepository {
	return &idlePeriodRepository{db: db}
}

func (r *idlePeriodRepository) WithTx(tx *sql.Tx) IdlePeriodRepository {
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true})
	db.Statement.ConnPool = tx
	return &idlePeriodRepository{db: db}
}

func (r *idlePeriodRepository) Create(ctx context.Context, p *IdlePeriod) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *idlePeriodRepository) Update(ctx context.Context, p *IdlePeriod) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *idlePeriodRepository) FindOpenByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	var p IdlePeriod
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Where("end_time IS NULL").
		First(&p).Error
	return &p, err
}

func (r *idlePeriodRepository) FindOpenIdleByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	var p IdlePeriod
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Where("end_time IS NULL").
		Where("is_break = ?", false).
		First(&p).Error
	return &p, err
}

func (r *idlePeriodRepository) FindOpenBreakByShift(ctx context.Context, shiftID uuid.UUID) (*IdlePeriod, error) {
	var p IdlePeriod
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Where("end_time IS NULL").
		Where("is_break = ?", true).
		First(&p).Error
	return &p, err
}

func (r *idlePeriodRepository) ListOpenByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error) {
	var rows []IdlePeriod
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Where("end_time IS NULL").
		Find(&rows).Error
	return rows, err
}

func (r *idlePeriodRepository) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]IdlePeriod, error) {
	var rows []IdlePeriod
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *idlePeriodRepository) SumClosedMinutesByShift(ctx context.Context, shiftID uuid.UUID) (int, error) {
	var total sql.NullInt64
	err := r.db.WithContext(ctx).
		Model(&IdlePeriod{}).
		Select("SUM(duration_minutes)").
		Where("shift_id = ?", shiftID).
		Where("end_time IS NOT NULL").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

func (r *idlePeriodRepository) CountBreaksByShift(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&IdlePeriod{}).
		Where("shift_id = ?", shiftID).
		Where("is_break = ?", true).
		Count(&count).Error
	return count, err
}
