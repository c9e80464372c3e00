package shift

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows the admin shift listing.
type ListFilter struct {
	Picker        string
	Status        string
	AdminAdjusted *bool
	Start         *time.Time // inclusive, on check_in_time
	End           *time.Time // inclusive, on check_in_time
	Page          int
	PageSize      int
}

//go:generate mockgen -source=shift_repo.go -destination=mock/shift_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Shift) error
	Update(ctx context.Context, s *Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	FindActiveByPicker(ctx context.Context, username string) (*Shift, error)
	FindAllActive(ctx context.Context) ([]Shift, error)
	List(ctx context.Context, f ListFilter) ([]Shift, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to an open database/sql transaction so shift,
// idle-period, activity and outbox writes commit or roll back together.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	db := r.db.Session(&gorm.Session{NewDB: true, SkipDefaultTransaction: true})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Shift) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) Update(ctx context.Context, s *Shift) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	return &s, err
}

func (r *repository) FindActiveByPicker(ctx context.Context, username string) (*Shift, error) {
	var s Shift
	err := r.db.WithContext(ctx).
		Where("picker_username = ?", username).
		Where("status = ?", StatusActive).
		First(&s).Error
	return &s, err
}

func (r *repository) FindAllActive(ctx context.Context) ([]Shift, error) {
	var rows []Shift
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("check_in_time ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Shift, int64, error) {
	q := r.db.WithContext(ctx).Model(&Shift{})

	if f.Picker != "" {
		q = q.Where("picker_username = ?", f.Picker)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AdminAdjusted != nil {
		q = q.Where("admin_adjusted = ?", *f.AdminAdjusted)
	}
	if f.Start != nil {
		q = q.Where("check_in_time >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("check_in_time <= ?", *f.End)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var rows []Shift
	err := q.Order("check_in_time DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}
