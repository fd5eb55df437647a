package measure

import (
	"github.com/programme-lv/strbench/internal/perf"
)

type Outcome int

const (
	Success Outcome = iota
	CannotSearch
	TimedOut
	Error
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case CannotSearch:
		return "cannot search"
	case TimedOut:
		return "timed out"
	case Error:
		return "error"
	}
	return "unknown"
}

// Marker is what a table shows instead of a time for a failed cell.
func (o Outcome) Marker() string {
	switch o {
	case CannotSearch:
		return "-"
	case TimedOut:
		return "OUT"
	case Error:
		return "ERR"
	}
	return ""
}

// Record is one repetition of a search.
type Record struct {
	SearchMs float64     `json:"search_ms"`
	PreMs    float64     `json:"pre_ms"`
	Count    int         `json:"count"`
	Counters perf.Sample `json:"counters"`
}

// Series holds the repetitions of one (algorithm, pattern length) cell and
// how it ended. Records includes the repetition that decided the outcome.
type Series struct {
	Outcome Outcome
	Records []Record
	// Killed is set when the hard timeout fired; the unit should not be
	// invoked again.
	Killed bool
	// Abandoned and Moved come from the call that ended the cell.
	Abandoned bool
	Moved     bool
}
