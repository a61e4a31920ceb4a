// Package entities holds the values passed between the sheet, the lookup service and the pipeline.
package entities

import "strings"

// NotAvailable is written in place of any attribute that could not be resolved
const NotAvailable = "N/A"

// Part is the attribute triple resolved for one part number
type Part struct {
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
	Description  string `json:"description"`
}

// UnresolvedPart returns the all-sentinel triple
func UnresolvedPart() Part {
	return Part{
		Manufacturer: NotAvailable,
		Category:     NotAvailable,
		Description:  NotAvailable,
	}
}

// NewPart builds a Part, replacing blank attributes with NotAvailable
func NewPart(manufacturer, category, description string) Part {
	return Part{
		Manufacturer: orNotAvailable(manufacturer),
		Category:     orNotAvailable(category),
		Description:  orNotAvailable(description),
	}
}

func orNotAvailable(value string) string {
	if strings.TrimSpace(value) == "" {
		return NotAvailable
	}
	return value
}
