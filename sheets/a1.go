package sheets

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// HeaderRows is the number of rows above the data
const HeaderRows = 1

// FirstDataRow is the first row read and written
const FirstDataRow = HeaderRows + 1

// ColumnName returns the A1 letters of a 1-based column
func ColumnName(column int) (string, error) {
	name, err := excelize.ColumnNumberToName(column)
	if err != nil {
		return "", fmt.Errorf("%w: column %d: %w", ErrInvalidRange, column, err)
	}
	return name, nil
}

// ColumnRange returns the A1 range covering rowStart..rowEnd of one column, e.g. B2:B10
func ColumnRange(column, rowStart, rowEnd int) (string, error) {
	if rowStart < 1 || rowEnd < rowStart {
		return "", fmt.Errorf("%w: rows %d..%d", ErrInvalidRange, rowStart, rowEnd)
	}
	from, err := excelize.CoordinatesToCellName(column, rowStart)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	to, err := excelize.CoordinatesToCellName(column, rowEnd)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	return from + ":" + to, nil
}

// openColumnRange returns the range from the first data row to the end of the column, e.g. A2:A
func openColumnRange(column int) (string, error) {
	from, err := excelize.CoordinatesToCellName(column, FirstDataRow)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	name, err := ColumnName(column)
	if err != nil {
		return "", err
	}
	return from + ":" + name, nil
}

// checkWrite validates a write request before it reaches a backend
func checkWrite(column, rowStart, rowEnd int, values []string) (string, error) {
	rng, err := ColumnRange(column, rowStart, rowEnd)
	if err != nil {
		return "", err
	}
	if rowStart <= HeaderRows {
		return "", fmt.Errorf("%w: %s overwrites the header row", ErrInvalidRange, rng)
	}
	if want := rowEnd - rowStart + 1; len(values) != want {
		return "", fmt.Errorf("%w: %s needs %d values, got %d", ErrInvalidRange, rng, want, len(values))
	}
	return rng, nil
}

// trimTrailingBlanks drops empty cells at the end of a column so both backends agree
func trimTrailingBlanks(values []string) []string {
	end := len(values)
	for end > 0 && strings.TrimSpace(values[end-1]) == "" {
		end--
	}
	return values[:end]
}

// quoteSheetTitle quotes a worksheet title for use in an A1 range
func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
