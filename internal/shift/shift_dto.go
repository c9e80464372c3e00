package shift

import "time"

type CheckInRequest struct {
	Coordinates *string `json:"coordinates"`
}

type CheckOutRequest struct {
	Coordinates *string `json:"coordinates"`
}

type StartBreakRequest struct {
	BreakReason *string `json:"break_reason"`
}

type RecordActivityRequest struct {
	ActivityType string  `json:"activity_type" binding:"required"`
	InvoiceNo    *string `json:"invoice_no"`
	ItemCode     *string `json:"item_code"`
	Details      *string `json:"details"`
}

// AdjustShiftRequest carries an admin override. Only the fields present are
// applied; timestamps are RFC3339 and interpreted as UTC instants.
type AdjustShiftRequest struct {
	CheckInTime         *time.Time `json:"check_in_time"`
	CheckOutTime        *time.Time `json:"check_out_time"`
	CheckInCoordinates  *string    `json:"check_in_coordinates"`
	CheckOutCoordinates *string    `json:"check_out_coordinates"`
	Status              *string    `json:"status"`
	Note                *string    `json:"note"`
}

type ShiftResponse struct {
	ID                   string  `json:"id"`
	PickerUsername       string  `json:"picker_username"`
	CheckInTime          string  `json:"check_in_time"`
	CheckOutTime         *string `json:"check_out_time,omitempty"`
	CheckInCoordinates   *string `json:"check_in_coordinates,omitempty"`
	CheckOutCoordinates  *string `json:"check_out_coordinates,omitempty"`
	TotalDurationMinutes *int    `json:"total_duration_minutes,omitempty"`
	Status               string  `json:"status"`
	AdminAdjusted        bool    `json:"admin_adjusted"`
	AdjustmentBy         *string `json:"adjustment_by,omitempty"`
	AdjustmentTime       *string `json:"adjustment_time,omitempty"`
	AdjustmentNote       *string `json:"adjustment_note,omitempty"`
}

type IdlePeriodResponse struct {
	ID              string  `json:"id"`
	ShiftID         string  `json:"shift_id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
	IsBreak         bool    `json:"is_break"`
	BreakReason     *string `json:"break_reason,omitempty"`
}

type ActivityResponse struct {
	ID             string  `json:"id"`
	PickerUsername string  `json:"picker_username"`
	ActivityType   string  `json:"activity_type"`
	Timestamp      string  `json:"timestamp"`
	InvoiceNo      *string `json:"invoice_no,omitempty"`
	ItemCode       *string `json:"item_code,omitempty"`
	Details        *string `json:"details,omitempty"`
}

type ShiftDetailResponse struct {
	Shift       ShiftResponse        `json:"shift"`
	IdlePeriods []IdlePeriodResponse `json:"idle_periods"`
	Activities  []ActivityResponse   `json:"activities"`
}

func mapShiftToResponse(s Shift) ShiftResponse {
	resp := ShiftResponse{
		ID:                   s.ID.String(),
		PickerUsername:       s.PickerUsername,
		CheckInTime:          s.CheckInTime.Format(time.RFC3339),
		CheckInCoordinates:   s.CheckInCoordinates,
		CheckOutCoordinates:  s.CheckOutCoordinates,
		TotalDurationMinutes: s.TotalDurationMinutes,
		Status:               s.Status,
		AdminAdjusted:        s.AdminAdjusted,
		AdjustmentBy:         s.AdjustmentBy,
		AdjustmentNote:       s.AdjustmentNote,
	}
	if s.CheckOutTime != nil {
		v := s.CheckOutTime.Format(time.RFC3339)
		resp.CheckOutTime = &v
	}
	if s.AdjustmentTime != nil {
		v := s.AdjustmentTime.Format(time.RFC3339)
		resp.AdjustmentTime = &v
	}
	return resp
}

func mapIdlePeriodToResponse(p IdlePeriod) IdlePeriodResponse {
	resp := IdlePeriodResponse{
		ID:              p.ID.String(),
		ShiftID:         p.ShiftID.String(),
		StartTime:       p.StartTime.Format(time.RFC3339),
		DurationMinutes: p.DurationMinutes,
		IsBreak:         p.IsBreak,
		BreakReason:     p.BreakReason,
	}
	if p.EndTime != nil {
		v := p.EndTime.Format(time.RFC3339)
		resp.EndTime = &v
	}
	return resp
}

func mapActivityToResponse(a ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:             a.ID.String(),
		PickerUsername: a.PickerUsername,
		ActivityType:   a.ActivityType,
		Timestamp:      a.Timestamp.Format(time.RFC3339),
		InvoiceNo:      a.InvoiceNo,
		ItemCode:       a.ItemCode,
		Details:        a.Details,
	}
}
