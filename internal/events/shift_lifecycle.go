package events

import "time"

const ShiftLifecycleTopic = "warehouse.shift.lifecycle.v1"

// Event types published on the shift lifecycle topic.
const (
	ShiftCheckedIn     = "shift.checked_in"
	ShiftCheckedOut    = "shift.checked_out"
	ShiftAdminCheckout = "shift.admin_checkout"
	ShiftAutoClosed    = "shift.auto_closed"
)

// ShiftLifecycleEvent is the payload downstream reporting and alerting
// consume. Timestamps are UTC.
type ShiftLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	ShiftID        string    `json:"shift_id"`
	PickerUsername string    `json:"picker_username"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"` // closure sub-reason for auto_closed
	OccurredAt     time.Time `json:"occurred_at"`
}
