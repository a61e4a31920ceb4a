// Package sheets reads and writes single-column ranges of a worksheet, either
// in Google Sheets or in a local .xlsx workbook.
package sheets

import "errors"

var (
	// ErrAuth is returned when credentials are missing, malformed or rejected
	ErrAuth = errors.New("spreadsheet authentication failed")

	// ErrNotFound is returned when the spreadsheet or worksheet does not exist
	ErrNotFound = errors.New("spreadsheet not found")

	// ErrWrite is returned when the backend rejects an update
	ErrWrite = errors.New("spreadsheet update rejected")

	// ErrInvalidRange is returned before any I/O when a range and its values disagree
	ErrInvalidRange = errors.New("invalid range")
)
