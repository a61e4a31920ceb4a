package mouser

// searchByPartRequest is the body of POST search/partnumber
type searchByPartRequest struct {
	SearchByPartRequest partSearch `json:"SearchByPartRequest"`
}

type partSearch struct {
	MouserPartNumber string `json:"mouserPartNumber"`
}

// searchResponse keeps only the fields the enrichment reads. Pointers tell a
// missing or null attribute apart from an empty one.
type searchResponse struct {
	Errors        []apiError     `json:"Errors"`
	SearchResults *searchResults `json:"SearchResults"`
}

type apiError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

type searchResults struct {
	NumberOfResult int          `json:"NumberOfResult"`
	Parts          []partResult `json:"Parts"`
}

type partResult struct {
	Manufacturer     *string `json:"Manufacturer"`
	Category         *string `json:"Category"`
	Description      *string `json:"Description"`
	MouserPartNumber *string `json:"MouserPartNumber"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
