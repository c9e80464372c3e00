package shift

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=activity_repo.go -destination=mock/activity_repo_mock.go -package=mock
type ActivityRepository interface {
	WithTx(tx *sql.Tx) ActivityRepository
	Create(ctx context.Context, a *ActivityLog) error
	FindLatestByPicker(ctx context.Context, username string) (*ActivityLog, error)
	// FindLatestByPickerExcluding skips the given activity types, so a closure
	// event written by a previous sweep can never serve as an activity anchor.
	FindLatestByPickerExcluding(ctx context.Context, username string, excluded []string) (*ActivityLog, error)
	ListByPickerBetween(ctx context.Context, username string, from, to time.Time) ([]ActivityLog, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) WithTx(tx *sql.Tx) ActivityRepository {
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true})
	db.Statement.ConnPool = tx
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *ActivityLog) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *activityRepository) FindLatestByPicker(ctx context.Context, username string) (*ActivityLog, error) {
	var a ActivityLog
	err := r.db.WithContext(ctx).
		Where("picker_username = ?", username).
		Order("timestamp DESC").
		First(&a).Error
	return &a, err
}

func (r *activityRepository) FindLatestByPickerExcluding(ctx context.Context, username string, excluded []string) (*ActivityLog, error) {
	var a ActivityLog
	err := r.db.WithContext(ctx).
		Where("picker_username = ?", username).
		Where("activity_type NOT IN ?", excluded).
		Order("timestamp DESC").
		First(&a).Error
	return &a, err
}

func (r *activityRepository) ListByPickerBetween(ctx context.Context, username string, from, to time.Time) ([]ActivityLog, error) {
	var rows []ActivityLog
	err := r.db.WithContext(ctx).
		Where("picker_username = ?", username).
		Where("timestamp >= ?", from).
		Where("timestamp <= ?", to).
		Order("timestamp ASC").
		Find(&rows).Error
	return rows, err
}
