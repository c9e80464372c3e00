package shift

import (
	"errors"
	"strings"

	shifterrors "picktrack/internal/shift/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const activeShiftConstraint = "uq_shifts_picker_active"

// isDuplicateActiveShift reports whether err is the partial unique index on
// (picker_username WHERE status='active') firing. Two concurrent check-ins can
// both pass the existence read; the loser surfaces here and is treated as the
// AlreadyActive idempotent-success path, never as a failure.
func isDuplicateActiveShift(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == activeShiftConstraint
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") && strings.Contains(msg, activeShiftConstraint)
}

func mapShiftLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shifterrors.ErrShiftNotFound
	}
	return err
}
