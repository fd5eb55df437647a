package api

// Summary is the spread of one measured quantity over the repetitions of a
// cell.
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Counters are hardware counter sums over all repetitions of a cell.
type Counters struct {
	CacheRefs          uint64 `json:"cache_refs"`
	CacheMisses        uint64 `json:"cache_misses"`
	L1Refs             uint64 `json:"l1_refs"`
	L1Misses           uint64 `json:"l1_misses"`
	BranchInstructions uint64 `json:"branch_instructions"`
	BranchMisses       uint64 `json:"branch_misses"`
}

type CellStats struct {
	SearchMs       Summary   `json:"search_ms"`
	PreMs          Summary   `json:"pre_ms"`
	TotalMs        Summary   `json:"total_ms"`
	ThroughputGBps Summary   `json:"throughput_gbps"`
	Counters       *Counters `json:"counters,omitempty"`
}

type Outcome string

const (
	Success      Outcome = "success"
	CannotSearch Outcome = "cannot_search"
	TimedOut     Outcome = "timed_out"
	Error        Outcome = "error"
)

// CellResult is one (pattern length, algorithm) cell. Stats is set only for
// successful cells.
type CellResult struct {
	PatternLen  int        `json:"pattern_len"`
	Algorithm   string     `json:"algorithm"`
	Outcome     Outcome    `json:"outcome"`
	Marker      string     `json:"marker,omitempty"`
	Repetitions int        `json:"repetitions"`
	Skipped     bool       `json:"skipped,omitempty"`
	Stats       *CellStats `json:"stats,omitempty"`
	// Abandoned is set when the unit's thread did not return even after
	// cancellation. Moved means that thread was taken off the measurement
	// cpu; otherwise later cells share the cpu with it.
	Abandoned bool `json:"abandoned,omitempty"`
	Moved     bool `json:"moved,omitempty"`
}

type AlgorithmInfo struct {
	Name    string `json:"name"`
	Display string `json:"display"`
	Hash    string `json:"hash"`
	Path    string `json:"path"`
	Tested  bool   `json:"tested"`
}

type TextInfo struct {
	Source       string  `json:"source"`
	Length       int     `json:"length"`
	AlphabetSize int     `json:"alphabet_size"`
	MaxByte      int     `json:"max_byte"`
	Entropy      float64 `json:"entropy"`
}

type HostInfo struct {
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	PinnedCPU int    `json:"pinned_cpu"`
	Counters  bool   `json:"counters"`
}

// RunInfo describes a benchmark run before any cell is measured.
type RunInfo struct {
	RunUuid       string          `json:"run_uuid"`
	Description   string          `json:"description,omitempty"`
	Host          HostInfo        `json:"host"`
	Text          TextInfo        `json:"text"`
	Plan          string          `json:"plan"`
	Lengths       []int           `json:"lengths"`
	Runs          int             `json:"runs"`
	TimeLimitMs   float64         `json:"time_limit_ms"`
	HardTimeoutMs float64         `json:"hard_timeout_ms"`
	Counters      string          `json:"counters"`
	Seed          uint64          `json:"seed"`
	Algorithms    []AlgorithmInfo `json:"algorithms"`
}

type LengthResult struct {
	PatternLen int          `json:"pattern_len"`
	Cells      []CellResult `json:"cells"`
}

// Watchdog counts measurement threads abandoned during a run.
type Watchdog struct {
	AbandonedThreads int `json:"abandoned_threads"`
	MovedThreads     int `json:"moved_threads"`
}

// RunReport is the complete, non-streaming result of a run.
type RunReport struct {
	RunInfo
	Results      []LengthResult `json:"results"`
	Watchdog     Watchdog       `json:"watchdog"`
	StartTime    string         `json:"start_time"`
	FinishTime   string         `json:"finish_time"`
	TotalTimeMs  int64          `json:"total_time_ms"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

type TestStatus string

const (
	Passed   TestStatus = "passed"
	Failed   TestStatus = "failed"
	Untested TestStatus = "untested"
)

// TestResult is the correctness verdict for one algorithm.
type TestResult struct {
	Algorithm string     `json:"algorithm"`
	Hash      string     `json:"hash"`
	Status    TestStatus `json:"status"`
	Counted   int        `json:"counted"`
	Skipped   int        `json:"skipped"`
	Failure   *string    `json:"failure,omitempty"`
}
