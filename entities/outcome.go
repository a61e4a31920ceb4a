package entities

// LookupOutcome tells why a part number ended up with the values it has.
// Only OutcomeFound carries data; every other outcome maps to UnresolvedPart.
type LookupOutcome string

const (
	OutcomeFound    LookupOutcome = "found"
	OutcomeNotFound LookupOutcome = "not_found" // the service answered with no match
	OutcomeFailed   LookupOutcome = "failed"    // transport, status code or payload problem
	OutcomeSkipped  LookupOutcome = "skipped"   // blank or unusable part number, no request sent
)

// AllOutcomes lists outcomes in reporting order
func AllOutcomes() []LookupOutcome {
	return []LookupOutcome{OutcomeFound, OutcomeNotFound, OutcomeFailed, OutcomeSkipped}
}

// RowResult is the enrichment result for one spreadsheet row
type RowResult struct {
	Row        int           `json:"row"`
	PartNumber string        `json:"part_number"`
	Part       Part          `json:"part"`
	Outcome    LookupOutcome `json:"outcome"`
}
