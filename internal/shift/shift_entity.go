package shift

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive     = "active"
	StatusCompleted  = "completed"
	StatusAutoClosed = "auto_closed"
)

// Activity types appended to the audit log. The auto_checkout* family is
// excluded when the 10-hour sweep anchors a checkout time on "last activity",
// so a closure event can never anchor another closure.
const (
	ActivityCheckIn         = "check_in"
	ActivityCheckOut        = "check_out"
	ActivityStartBreak      = "start_break"
	ActivityEndBreak        = "end_break"
	ActivityItemPick        = "item_pick"
	ActivityScreenTouch     = "screen_interaction"
	ActivityAdminAdjustment = "admin_shift_adjustment"
	ActivityAdminCheckout   = "admin_checkout"
	ActivityAutoCheckout    = "auto_checkout"
	ActivityAutoCheckout10h = "auto_checkout_10h"
	ActivityAutoCheckout12h = "auto_checkout_12h"
)

// Shift is one contiguous check-in-to-check-out attendance interval for a
// picker. All stored instants are UTC. The partial unique index
// uq_shifts_picker_active (picker_username WHERE status = 'active') is what
// actually enforces the single-active-shift invariant under concurrency;
// the service-level lookup is only the fast path.
type Shift struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	PickerUsername       string     `gorm:"column:picker_username;type:varchar(64);not null;index"`
	CheckInTime          time.Time  `gorm:"column:check_in_time;type:timestamptz;not null"`
	CheckOutTime         *time.Time `gorm:"column:check_out_time;type:timestamptz"`
	CheckInCoordinates   *string    `gorm:"column:check_in_coordinates;type:varchar(100)"`
	CheckOutCoordinates  *string    `gorm:"column:check_out_coordinates;type:varchar(100)"`
	TotalDurationMinutes *int       `gorm:"column:total_duration_minutes"`
	Status               string     `gorm:"column:status;type:varchar(20);not null;default:active;index"`
	AdminAdjusted        bool       `gorm:"column:admin_adjusted;not null;default:false"`
	AdjustmentBy         *string    `gorm:"column:adjustment_by;type:varchar(64)"`
	AdjustmentTime       *time.Time `gorm:"column:adjustment_time;type:timestamptz"`
	AdjustmentNote       *string    `gorm:"column:adjustment_note;type:text"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (Shift) TableName() string {
	return "shifts"
}

// CalculateDuration returns the shift length in whole minutes (floored, never
// negative), or nil while the shift is still open.
func (s *Shift) CalculateDuration() *int {
	if s.CheckOutTime == nil {
		return nil
	}
	m := minutesBetween(s.CheckInTime, *s.CheckOutTime)
	return &m
}

// IdlePeriod is a sub-interval of a shift during which the picker was not
// actively working: system-detected (is_break=false) or a self-declared break
// (is_break=true). A shift has at most one open period at any instant.
type IdlePeriod struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	ShiftID         uuid.UUID  `gorm:"column:shift_id;type:uuid;not null;index"`
	StartTime       time.Time  `gorm:"column:start_time;type:timestamptz;not null"`
	EndTime         *time.Time `gorm:"column:end_time;type:timestamptz"`
	DurationMinutes *int       `gorm:"column:duration_minutes"`
	IsBreak         bool       `gorm:"column:is_break;not null;default:false"`
	BreakReason     *string    `gorm:"column:break_reason;type:varchar(200)"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (IdlePeriod) TableName() string {
	return "idle_periods"
}

// CloseAt stamps the end time and derived duration.
func (p *IdlePeriod) CloseAt(t time.Time) {
	end := t.UTC()
	p.EndTime = &end
	m := minutesBetween(p.StartTime, end)
	p.DurationMinutes = &m
}

// ActivityLog is an append-only fact: it is both the audit trail and the
// "time since last activity" signal idle detection runs on. Rows are never
// updated or deleted.
type ActivityLog struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	PickerUsername string    `gorm:"column:picker_username;type:varchar(64);not null;index"`
	ActivityType   string    `gorm:"column:activity_type;type:varchar(50);not null"`
	Timestamp      time.Time `gorm:"column:timestamp;type:timestamptz;not null;index"`
	InvoiceNo      *string   `gorm:"column:invoice_no;type:varchar(50)"`
	ItemCode       *string   `gorm:"column:item_code;type:varchar(50)"`
	Details        *string   `gorm:"column:details;type:text"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// minutesBetween floors the elapsed time to whole minutes and clamps at zero.
func minutesBetween(from, to time.Time) int {
	m := int(to.Sub(from).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
