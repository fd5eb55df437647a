// Package stats reduces repeated measurements of one cell to summary
// statistics.
package stats

import (
	"math"
	"slices"

	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/perf"
)

type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	return lo, hi
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Median sorts a copy; xs is left untouched.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// StdDev is the sample standard deviation, divisor max(1, n-1).
func StdDev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(max(1, len(xs)-1)))
}

func Summarize(xs []float64) Summary {
	var s Summary
	s.Min, s.Max = MinMax(xs)
	s.Mean = Mean(xs)
	s.Median = Median(xs)
	s.StdDev = StdDev(xs, s.Mean)
	return s
}

// Throughput converts a search time over textLen bytes to GB/s.
// Zero time yields zero.
func Throughput(textLen int, searchMs float64) float64 {
	if searchMs <= 0 {
		return 0
	}
	return float64(textLen) / (searchMs * 1e6)
}

// Cell is the aggregate of one successful (algorithm, pattern length) cell.
type Cell struct {
	Runs       int         `json:"runs"`
	Search     Summary     `json:"search_ms"`
	Pre        Summary     `json:"pre_ms"`
	Total      Summary     `json:"total_ms"`
	Throughput Summary     `json:"throughput_gbps"`
	Counters   perf.Sample `json:"counters"`
}

// Aggregate summarises the records of a cell searched over textLen bytes.
// Throughput statistics are computed on the per-repetition GB/s series, not
// converted from the time statistics.
func Aggregate(records []measure.Record, textLen int) Cell {
	search := make([]float64, len(records))
	pre := make([]float64, len(records))
	total := make([]float64, len(records))
	tput := make([]float64, len(records))
	c := Cell{Runs: len(records)}
	for i, r := range records {
		search[i] = r.SearchMs
		pre[i] = r.PreMs
		total[i] = r.SearchMs + r.PreMs
		tput[i] = Throughput(textLen, r.SearchMs)
		c.Counters.Add(r.Counters)
	}
	c.Search = Summarize(search)
	c.Pre = Summarize(pre)
	c.Total = Summarize(total)
	c.Throughput = Summarize(tput)
	return c
}
