package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"picktrack/internal/shift"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// reportColumns is the fixed export header, shared by both formats.
var reportColumns = []string{
	"Shift ID",
	"Picker",
	"Check-In Time",
	"Check-Out Time",
	"Duration (Minutes)",
	"Idle Time (Minutes)",
	"Break Count",
	"Status",
	"Admin Adjusted",
	"Adjustment Note",
}

// Row is one shift flattened for export, idle and break aggregates included.
type Row struct {
	ShiftID         string
	Picker          string
	CheckInTime     time.Time
	CheckOutTime    *time.Time
	DurationMinutes *int
	IdleMinutes     int
	BreakCount      int64
	Status          string
	AdminAdjusted   bool
	AdjustmentNote  *string
}

type Service interface {
	BuildShiftReport(ctx context.Context, f shift.ListFilter) ([]Row, error)
	WriteCSV(w io.Writer, rows []Row) error
	WriteXLSX(rows []Row) (*bytes.Buffer, error)
}

type service struct {
	shifts shift.Repository
	idles  shift.IdlePeriodRepository
	logger *zap.Logger
}

func NewService(shifts shift.Repository, idles shift.IdlePeriodRepository, logger ...*zap.Logger) Service {
	l := zap.L().Named("reports.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("reports.service")
	}
	return &service{shifts: shifts, idles: idles, logger: l}
}

const reportMaxRows = 5000

func (s *service) BuildShiftReport(ctx context.Context, f shift.ListFilter) ([]Row, error) {
	// Reports are bounded, not paginated.
	f.Page = 1
	f.PageSize = reportMaxRows

	shifts, total, err := s.shifts.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if total > reportMaxRows {
		s.logger.Warn("shift report truncated",
			zap.Int64("total", total),
			zap.Int("limit", reportMaxRows),
		)
	}

	rows := make([]Row, 0, len(shifts))
	for _, sh := range shifts {
		idleMinutes, err := s.idles.SumClosedMinutesByShift(ctx, sh.ID)
		if err != nil {
			return nil, err
		}
		breakCount, err := s.idles.CountBreaksByShift(ctx, sh.ID)
		if err != nil {
			return nil, err
		}

		rows = append(rows, Row{
			ShiftID:         sh.ID.String(),
			Picker:          sh.PickerUsername,
			CheckInTime:     sh.CheckInTime,
			CheckOutTime:    sh.CheckOutTime,
			DurationMinutes: sh.TotalDurationMinutes,
			IdleMinutes:     idleMinutes,
			BreakCount:      breakCount,
			Status:          sh.Status,
			AdminAdjusted:   sh.AdminAdjusted,
			AdjustmentNote:  sh.AdjustmentNote,
		})
	}
	return rows, nil
}

func (s *service) WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.strings()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *service) WriteXLSX(rows []Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Shifts"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "B", 16)
	f.SetColWidth(sheet, "C", "D", 22)
	f.SetColWidth(sheet, "E", "I", 14)
	f.SetColWidth(sheet, "J", "J", 40)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range reportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, r := range rows {
		for colIdx, v := range r.strings() {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f.WriteToBuffer()
}

func (r Row) strings() []string {
	checkOut := ""
	if r.CheckOutTime != nil {
		checkOut = r.CheckOutTime.Format(time.RFC3339)
	}
	duration := ""
	if r.DurationMinutes != nil {
		duration = strconv.Itoa(*r.DurationMinutes)
	}
	note := ""
	if r.AdjustmentNote != nil {
		note = *r.AdjustmentNote
	}
	return []string{
		r.ShiftID,
		r.Picker,
		r.CheckInTime.Format(time.RFC3339),
		checkOut,
		duration,
		strconv.Itoa(r.IdleMinutes),
		fmt.Sprintf("%d", r.BreakCount),
		r.Status,
		strconv.FormatBool(r.AdminAdjusted),
		note,
	}
}
