package shifterrors

import (
	"net/http"

	"picktrack/internal/shared/apperror"
)

var (
	ErrNoActiveShift = apperror.New(
		apperror.CodeNotFound,
		"No active shift found for this picker",
		http.StatusNotFound,
	)
	ErrNoActiveBreak = apperror.New(
		apperror.CodeNotFound,
		"No active break found for this picker",
		http.StatusNotFound,
	)
	ErrShiftNotFound = apperror.New(
		apperror.CodeNotFound,
		"Shift not found",
		http.StatusNotFound,
	)
	ErrShiftNotActive = apperror.New(
		apperror.CodeInvalidState,
		"This shift is not active",
		http.StatusConflict,
	)
	ErrCheckOutBeforeCheckIn = apperror.New(
		apperror.CodeInvalidInput,
		"Check-out time must not be before check-in time",
		http.StatusBadRequest,
	)
	ErrInvalidShiftID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid shift ID",
		http.StatusBadRequest,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidInput,
		"Status must be one of active, completed, auto_closed",
		http.StatusBadRequest,
	)
	ErrOutsideGeofence = apperror.New(
		apperror.CodeForbidden,
		"Location is outside the allowed check-in area",
		http.StatusForbidden,
	)
)
