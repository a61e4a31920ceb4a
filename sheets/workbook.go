package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joe-wehbe/mouser-sheets-automation/interfaces"
	"github.com/xuri/excelize/v2"
)

// Compile-time check to ensure Workbook implements SheetGateway
var _ interfaces.SheetGateway = (*Workbook)(nil)

// Workbook is one worksheet of a local .xlsx file. Every WriteRange is saved to disk.
type Workbook struct {
	file  *excelize.File
	path  string
	sheet string
}

// OpenWorkbook opens path and selects sheetName, or the first sheet when it is empty
func OpenWorkbook(path, sheetName string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: workbook %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("%w: workbook %s has no sheets", ErrNotFound, path)
		}
		sheetName = sheets[0]
	}

	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: sheet %q in %s", ErrNotFound, sheetName, path)
	}

	return &Workbook{file: f, path: path, sheet: sheetName}, nil
}

// Describe implements interfaces.SheetGateway
func (w *Workbook) Describe() string {
	return fmt.Sprintf("xlsx:%s#%s", w.path, w.sheet)
}

// ReadColumn implements interfaces.SheetGateway
func (w *Workbook) ReadColumn(ctx context.Context, column int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ColumnName(column); err != nil {
		return nil, err
	}

	rows, err := w.file.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", w.sheet, err)
	}

	values := make([]string, 0, len(rows))
	for i := HeaderRows; i < len(rows); i++ {
		value := ""
		if len(rows[i]) >= column {
			value = rows[i][column-1]
		}
		values = append(values, value)
	}

	return trimTrailingBlanks(values), nil
}

// WriteRange implements interfaces.SheetGateway
func (w *Workbook) WriteRange(ctx context.Context, column, rowStart, rowEnd int, values []string) error {
	rng, err := checkWrite(column, rowStart, rowEnd, values)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(column, rowStart+i)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWrite, rng, err)
		}
		if err := w.file.SetCellStr(w.sheet, cell, value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWrite, rng, err)
		}
	}

	if err := w.file.Save(); err != nil {
		return fmt.Errorf("%w: saving %s: %w", ErrWrite, w.path, err)
	}

	return nil
}

// Close implements interfaces.SheetGateway
func (w *Workbook) Close() error {
	return w.file.Close()
}
