package profiler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nicolastakashi/query-profiler-panel/internal/format"
)

// ErrMalformedSummary is wrapped by every summary parse failure.
var ErrMalformedSummary = errors.New("malformed profiler summary")

// Summary holds the aggregate query statistics of one request.
type Summary struct {
	TotalQueryExecutionTimeMicros format.Number `json:"total_query_execution_time_in_micros"`

	Select         format.Number `json:"SELECT"`
	Insert         format.Number `json:"INSERT"`
	Update         format.Number `json:"UPDATE"`
	Delete         format.Number `json:"DELETE"`
	Transactionals format.Number `json:"TRANSACTIONALS"`
	Other          format.Number `json:"OTHER"`

	TotalDBRowCount           format.Number `json:"total_db_row_count"`
	PotentialNPlus1QueryCount format.Number `json:"potential_n_plus1_query_count"`
	ExactQueryDuplicates      format.Number `json:"exact_query_duplicates"`
}

// SummaryParseError describes a summary header that could not be decoded.
type SummaryParseError struct {
	Raw string
	Err error
}

func (e *SummaryParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedSummary, e.Err)
}

func (e *SummaryParseError) Unwrap() []error {
	return []error{ErrMalformedSummary, e.Err}
}

// ParseSummary decodes the JSON value of the summary header. An empty value
// yields an empty summary.
func ParseSummary(raw string) (Summary, error) {
	var s Summary
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Summary{}, &SummaryParseError{Raw: raw, Err: err}
	}
	return s, nil
}
