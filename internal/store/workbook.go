package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
	"github.com/xuri/excelize/v2"
)

// Layout of a weekly sheet (1-based, as in the spreadsheet).
const (
	titleRow    = 1
	headerRow   = 2
	subRow      = 3
	firstRow    = 4
	fromCol     = 1
	endCol      = 2
	durationCol = 3
	firstDayCol = 4
)

const (
	numFmtDate = 14
	numFmtTime = 20
)

// Workbook keeps the weekly table in an .xlsx file, one sheet per week. Each
// Put re-opens the file so edits made in a spreadsheet app in between are
// kept.
type Workbook struct {
	mu   sync.Mutex
	path string
}

// OpenWorkbook returns a Workbook backed by path. The file is created on the
// first write when missing.
func OpenWorkbook(path string) (*Workbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating workbook directory: %w", err)
	}
	return &Workbook{path: path}, nil
}

// Path returns the workbook file location.
func (w *Workbook) Path() string { return w.path }

func (w *Workbook) Put(ctx context.Context, date time.Time, index int, label string) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	weekStart := slot.WeekStart(date)
	sheet, err := ensureSheet(f, weekStart)
	if err != nil {
		return err
	}
	if created {
		// Drop the default sheet of a brand-new file.
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}

	cell, err := excelize.CoordinatesToCellName(firstDayCol+int(date.Weekday()), firstRow+index)
	if err != nil {
		return fmt.Errorf("resolving cell: %w", err)
	}
	if err := f.SetCellStr(sheet, cell, label); err != nil {
		return fmt.Errorf("writing cell %s: %w", cell, err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func (w *Workbook) Week(ctx context.Context, weekStart time.Time) (*Week, error) {
	weekStart = slot.WeekStart(weekStart)
	week := &Week{Start: weekStart}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return week, nil
		}
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := SheetName(weekStart)
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return week, nil
	}

	for d := 0; d < slot.DaysPerWeek; d++ {
		for i := 0; i < slot.PerDay; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cell, _ := excelize.CoordinatesToCellName(firstDayCol+d, firstRow+i)
			v, err := f.GetCellValue(sheet, cell)
			if err != nil {
				return nil, fmt.Errorf("reading cell %s: %w", cell, err)
			}
			week.Labels[d][i] = v
		}
	}
	return week, nil
}

func (w *Workbook) Close() error { return nil }

func (w *Workbook) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("opening workbook: %w", err)
}

type cellValue struct {
	col, row int
	v        any
}

// ensureSheet returns the week's sheet, creating and pre-populating it on
// first use.
func ensureSheet(f *excelize.File, weekStart time.Time) (string, error) {
	name := SheetName(weekStart)
	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		return name, nil
	}

	if _, err := f.NewSheet(name); err != nil {
		return "", fmt.Errorf("creating sheet %s: %w", name, err)
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(name, cell, v)
	}

	headers := []cellValue{
		{1, titleRow, "Weekly Schedule"},
		{fromCol, headerRow, "Time"},
		{durationCol, headerRow, "Duration"},
		{fromCol, subRow, "From"},
		{endCol, subRow, "End"},
	}
	for d, day := range dayNames {
		headers = append(headers,
			cellValue{firstDayCol + d, headerRow, day},
			cellValue{firstDayCol + d, subRow, DateSerial(weekStart.AddDate(0, 0, d))},
		)
	}
	for _, h := range headers {
		if err := set(h.col, h.row, h.v); err != nil {
			return "", fmt.Errorf("writing header: %w", err)
		}
	}

	for i := 0; i < slot.PerDay; i++ {
		row := firstRow + i
		if err := set(fromCol, row, float64(i)/slot.PerDay); err != nil {
			return "", fmt.Errorf("writing slot row: %w", err)
		}
		if err := set(endCol, row, float64(i+1)/slot.PerDay); err != nil {
			return "", fmt.Errorf("writing slot row: %w", err)
		}
		if err := set(durationCol, row, 0.5); err != nil {
			return "", fmt.Errorf("writing slot row: %w", err)
		}
	}

	if err := applyFormats(f, name); err != nil {
		return "", err
	}
	return name, nil
}

func applyFormats(f *excelize.File, sheet string) error {
	timeStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTime})
	if err != nil {
		return fmt.Errorf("creating time style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtDate})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}

	top, _ := excelize.CoordinatesToCellName(fromCol, firstRow)
	bottom, _ := excelize.CoordinatesToCellName(endCol, firstRow+slot.PerDay-1)
	if err := f.SetCellStyle(sheet, top, bottom, timeStyle); err != nil {
		return fmt.Errorf("styling time column: %w", err)
	}

	left, _ := excelize.CoordinatesToCellName(firstDayCol, subRow)
	right, _ := excelize.CoordinatesToCellName(firstDayCol+slot.DaysPerWeek-1, subRow)
	if err := f.SetCellStyle(sheet, left, right, dateStyle); err != nil {
		return fmt.Errorf("styling date row: %w", err)
	}
	return nil
}
