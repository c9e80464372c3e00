package settingserrors

import (
	"net/http"

	"picktrack/internal/shared/apperror"
)

var (
	ErrInvalidKey = apperror.New(
		apperror.CodeInvalidInput,
		"Setting key must not be empty",
		http.StatusBadRequest,
	)
	ErrInvalidThreshold = apperror.New(
		apperror.CodeInvalidInput,
		"Idle threshold must be an integer of at least 1 minute",
		http.StatusBadRequest,
	)
	ErrInvalidTimeOfDay = apperror.New(
		apperror.CodeInvalidInput,
		"Time of day must be in HH:MM format",
		http.StatusBadRequest,
	)
	ErrInvalidTimezone = apperror.New(
		apperror.CodeInvalidInput,
		"Unknown IANA timezone name",
		http.StatusBadRequest,
	)
)
