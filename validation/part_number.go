// Package validation cleans part numbers read from the sheet before they are sent to the search API.
package validation

import (
	"errors"
	"strings"
)

var ErrBlankPartNumber = errors.New("blank part number")

// NormalizePartNumber returns the part number as it should be queried.
// The search is an exact match, so only surrounding space is removed.
func NormalizePartNumber(raw string) (string, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", ErrBlankPartNumber
	}

	return normalized, nil
}
