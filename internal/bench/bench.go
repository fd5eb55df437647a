// Package bench measures every (pattern length, algorithm) cell of a run and
// reports each cell to a Gatherer as soon as it is finished.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/stats"
	"github.com/programme-lv/strbench/internal/textgen"
)

// Gatherer receives run events in order: StartRun, then for every length
// StartLength, one FinishCell per algorithm and FinishLength, then FinishRun.
type Gatherer interface {
	StartRun(info api.RunInfo)
	StartLength(patternLen int)
	FinishCell(cell api.CellResult)
	FinishLength(patternLen int)
	// FinishRun is called once, with a nil error when every cell was measured.
	FinishRun(err error)
}

type Config struct {
	Plan textgen.Plan
	// Pattern replaces extracted patterns; the run then has a single length.
	Pattern     []byte
	Seed        uint64
	Description string
	// TextSource describes where the text came from, for the report.
	TextSource string
}

// Lengths returns the pattern lengths measured over a text of textLen bytes.
func (c Config) Lengths(textLen int) ([]int, error) {
	if len(c.Pattern) > 0 {
		return []int{len(c.Pattern)}, nil
	}
	lengths := c.Plan.Lengths(textLen)
	if len(lengths) == 0 {
		return nil, fmt.Errorf("no pattern length of %s fits a text of %d bytes", c.Plan, textLen)
	}
	return lengths, nil
}

type Runner struct {
	driver   *measure.Driver
	gatherer Gatherer
	logger   *slog.Logger
}

func NewRunner(driver *measure.Driver, gatherer Gatherer, logger *slog.Logger) *Runner {
	return &Runner{driver: driver, gatherer: gatherer, logger: logger}
}

// Run measures algs over text. Cells are visited length-ascending, then in
// algorithm order. A unit whose thread had to be abandoned is skipped for the
// rest of the run.
func (r *Runner) Run(ctx context.Context, algs []*algo.Algorithm, text textgen.Buffer, cfg Config) error {
	if len(algs) == 0 {
		return fmt.Errorf("no algorithms to benchmark")
	}
	for _, a := range algs {
		if !a.Loaded() {
			return fmt.Errorf("algorithm %s is not loaded", a.Name)
		}
	}
	lengths, err := cfg.Lengths(text.Len())
	if err != nil {
		return err
	}
	maxLen := lengths[len(lengths)-1]
	if need := textgen.PaddedSize(0, maxLen); text.Padding() < need {
		return fmt.Errorf("text padding %d is too small for patterns of %d bytes, need %d",
			text.Padding(), maxLen, need)
	}

	info := r.runInfo(algs, text, cfg, lengths)
	r.gatherer.StartRun(info)
	err = r.measureAll(ctx, algs, text, cfg, lengths)
	r.gatherer.FinishRun(err)
	return err
}

func (r *Runner) measureAll(ctx context.Context, algs []*algo.Algorithm, text textgen.Buffer, cfg Config, lengths []int) error {
	rng := textgen.NewRand(cfg.Seed)
	runs := r.driver.Options().Runs
	for _, m := range lengths {
		r.gatherer.StartLength(m)
		patterns, err := textgen.ExtractPatterns(text.Text(), m, runs, cfg.Pattern, rng)
		if err != nil {
			return fmt.Errorf("failed to extract patterns: %w", err)
		}
		for _, a := range algs {
			cell, err := r.measureCell(ctx, a, m, patterns, text)
			if err != nil {
				return fmt.Errorf("failed to measure %s at m=%d: %w", a.Name, m, err)
			}
			r.gatherer.FinishCell(cell)
		}
		r.gatherer.FinishLength(m)
	}
	return nil
}

func (r *Runner) measureCell(ctx context.Context, a *algo.Algorithm, m int, patterns []textgen.Pattern, text textgen.Buffer) (api.CellResult, error) {
	cell := api.CellResult{PatternLen: m, Algorithm: a.Name}
	if a.Poisoned() {
		cell.Outcome = api.TimedOut
		cell.Marker = measure.TimedOut.Marker()
		cell.Skipped = true
		return cell, nil
	}

	text.Restore()
	series, err := r.driver.Measure(ctx, a.Searcher(), patterns, text.Bytes(), text.Len())
	if err != nil {
		return cell, err
	}
	if series.Killed {
		r.logger.Warn("algorithm exceeded the hard timeout, skipping it from now on",
			"algorithm", a.Name, "pattern_len", m)
		a.Poison()
	}
	if series.Abandoned {
		cell.Abandoned = true
		cell.Moved = series.Moved
		if !series.Moved {
			r.logger.Warn("later cells share the measurement cpu with a stuck thread", "algorithm", a.Name)
		}
	}
	cell.Outcome = outcome(series.Outcome)
	cell.Marker = series.Outcome.Marker()
	cell.Repetitions = len(series.Records)
	if series.Outcome == measure.Success {
		agg := stats.Aggregate(series.Records, text.Len())
		cell.Stats = cellStats(agg, r.driver.CountersActive())
	}
	return cell, nil
}

func outcome(o measure.Outcome) api.Outcome {
	switch o {
	case measure.Success:
		return api.Success
	case measure.CannotSearch:
		return api.CannotSearch
	case measure.TimedOut:
		return api.TimedOut
	}
	return api.Error
}

func summary(s stats.Summary) api.Summary {
	return api.Summary{Min: s.Min, Max: s.Max, Mean: s.Mean, Median: s.Median, StdDev: s.StdDev}
}

func cellStats(c stats.Cell, withCounters bool) *api.CellStats {
	res := &api.CellStats{
		SearchMs:       summary(c.Search),
		PreMs:          summary(c.Pre),
		TotalMs:        summary(c.Total),
		ThroughputGBps: summary(c.Throughput),
	}
	if withCounters {
		res.Counters = &api.Counters{
			CacheRefs:          c.Counters.CacheRefs,
			CacheMisses:        c.Counters.CacheMisses,
			L1Refs:             c.Counters.L1Refs,
			L1Misses:           c.Counters.L1Misses,
			BranchInstructions: c.Counters.BranchInstructions,
			BranchMisses:       c.Counters.BranchMisses,
		}
	}
	return res
}

func (r *Runner) runInfo(algs []*algo.Algorithm, text textgen.Buffer, cfg Config, lengths []int) api.RunInfo {
	opts := r.driver.Options()
	ts := textgen.ComputeStats(text.Text())
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	info := api.RunInfo{
		RunUuid:     uuid.New().String(),
		Description: cfg.Description,
		Host: api.HostInfo{
			Hostname:  hostname,
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
			PinnedCPU: r.driver.Core(),
			Counters:  r.driver.CountersActive(),
		},
		Text: api.TextInfo{
			Source:       cfg.TextSource,
			Length:       text.Len(),
			AlphabetSize: ts.AlphabetSize,
			MaxByte:      int(ts.MaxByte),
			Entropy:      ts.Entropy,
		},
		Plan:          cfg.Plan.String(),
		Lengths:       lengths,
		Runs:          opts.Runs,
		TimeLimitMs:   durationMs(opts.TimeLimit),
		HardTimeoutMs: durationMs(opts.EffectiveHardTimeout()),
		Counters:      opts.Counters.String(),
		Seed:          cfg.Seed,
	}
	if len(cfg.Pattern) > 0 {
		info.Plan = fmt.Sprintf("fixed pattern of %d bytes", len(cfg.Pattern))
	}
	for _, a := range algs {
		info.Algorithms = append(info.Algorithms, api.AlgorithmInfo{
			Name:    a.Name,
			Display: a.DisplayName(),
			Hash:    a.Hash,
			Path:    a.Path,
			Tested:  a.Tested,
		})
	}
	return info
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ErrorMessage formats a run error for reports; nil stays nil.
func ErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "interrupted: " + msg
	}
	return &msg
}
