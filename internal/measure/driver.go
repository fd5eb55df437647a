// Package measure runs search invocations on a dedicated pinned thread and
// classifies repeated measurements of one cell.
package measure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/cpu"
	"github.com/programme-lv/strbench/internal/perf"
	"github.com/programme-lv/strbench/internal/textgen"
)

const (
	DefaultGrace      = 250 * time.Millisecond
	minHardTimeout    = time.Second
	hardTimeoutFactor = 10
)

type Options struct {
	Runs int
	// TimeLimit is checked after each repetition against the reported
	// search time. Zero disables the check.
	TimeLimit time.Duration
	// HardTimeout bounds the wall-clock time of one invocation. Zero means
	// ten times TimeLimit, at least one second.
	HardTimeout time.Duration
	// Grace is how long a cancelled invocation may take to return before
	// its thread is abandoned.
	Grace    time.Duration
	Pin      cpu.Pin
	Counters perf.Selection
}

func (o Options) EffectiveHardTimeout() time.Duration {
	if o.HardTimeout > 0 {
		return o.HardTimeout
	}
	return max(hardTimeoutFactor*o.TimeLimit, minHardTimeout)
}

func (o Options) grace() time.Duration {
	if o.Grace > 0 {
		return o.Grace
	}
	return DefaultGrace
}

func (o Options) limitMs() float64 {
	return float64(o.TimeLimit) / float64(time.Millisecond)
}

type Driver struct {
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	w    *worker
	info workerInfo
	// abandoned counts workers given up after a hard timeout, moved those
	// of them taken off the measurement cpu
	abandoned int
	moved     int
}

func NewDriver(opts Options, logger *slog.Logger) (*Driver, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("runs must be positive, got %d", opts.Runs)
	}
	if opts.TimeLimit < 0 || opts.HardTimeout < 0 {
		return nil, fmt.Errorf("time limits must not be negative")
	}
	d := &Driver{opts: opts, logger: logger}
	d.w, d.info = startWorker(opts.Pin, opts.Counters, logger)
	if d.info.core >= 0 {
		logger.Debug("measurement thread pinned", "cpu", d.info.core)
	}
	return d, nil
}

func (d *Driver) Options() Options { return d.opts }

// Core is the cpu the measurement thread is pinned to, or -1.
func (d *Driver) Core() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.core
}

// CountersActive reports whether hardware counters are being read.
func (d *Driver) CountersActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.counters
}

func (d *Driver) Abandoned() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.abandoned
}

// Moved counts abandoned threads that were moved off the measurement cpu.
func (d *Driver) Moved() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moved
}

func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.w != nil {
		d.w.stop()
		d.w = nil
	}
}

func (d *Driver) current() *worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w
}

// replaceWorker gives up a stuck worker and starts a new one on the same
// cpu. The stuck thread keeps running, so a pinned one is moved to the other
// allowed cpus first. It reports whether the stuck thread was moved.
func (d *Driver) replaceWorker(stuck *worker) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	stuck.stop()
	d.abandoned++
	moved := false
	if core := stuck.info.core; core >= 0 {
		if err := cpu.MoveOff(stuck.info.tid, core); err != nil {
			d.logger.Warn("stuck thread still shares the measurement cpu", "cpu", core, "error", err)
		} else {
			moved = true
			d.moved++
		}
	}
	d.logger.Warn("abandoning stuck measurement thread", "abandoned", d.abandoned, "moved", moved)
	d.w, d.info = startWorker(d.opts.Pin, d.opts.Counters, d.logger)
	return moved
}

// Invoke runs one search on the measurement thread under the hard timeout.
// The returned error is non-nil only when ctx itself ends.
func (d *Driver) Invoke(ctx context.Context, s algo.Searcher, pattern, text []byte, n int) (Call, error) {
	w := d.current()
	if w == nil {
		return Call{}, fmt.Errorf("driver is closed")
	}
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	j := &job{ctx: jobCtx, s: s, pattern: pattern, text: text, n: n, done: make(chan Call, 1)}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return Call{}, ctx.Err()
	}

	hard := time.NewTimer(d.opts.EffectiveHardTimeout())
	defer hard.Stop()
	select {
	case c := <-j.done:
		return c, ctx.Err()
	case <-hard.C:
	case <-ctx.Done():
	}

	cancel()
	grace := time.NewTimer(d.opts.grace())
	defer grace.Stop()
	select {
	case c := <-j.done:
		c.Killed = true
		return c, ctx.Err()
	case <-grace.C:
	}

	moved := d.replaceWorker(w)
	return Call{Result: algo.Result{Kind: algo.Fault}, Killed: true, Abandoned: true, Moved: moved}, ctx.Err()
}

// Measure runs the configured number of repetitions of one cell,
// repetition k using patterns[k mod len(patterns)].
func (d *Driver) Measure(ctx context.Context, s algo.Searcher, patterns []textgen.Pattern, text []byte, n int) (Series, error) {
	if len(patterns) == 0 {
		return Series{}, fmt.Errorf("no patterns to search for")
	}
	res := Series{Outcome: Success, Records: make([]Record, 0, d.opts.Runs)}
	for k := 0; k < d.opts.Runs; k++ {
		p := patterns[k%len(patterns)]
		c, err := d.Invoke(ctx, s, p.Bytes, text, n)
		if err != nil {
			return res, err
		}
		res.Records = append(res.Records, Record{
			SearchMs: c.Timing.SearchMs,
			PreMs:    c.Timing.PreMs,
			Count:    c.Result.Count,
			Counters: c.Counters,
		})
		if out, stop := d.classify(c); stop {
			res.Outcome = out
			res.Killed = c.Killed
			res.Abandoned = c.Abandoned
			res.Moved = c.Moved
			return res, nil
		}
	}
	return res, nil
}

// classify decides whether a repetition ends the cell.
func (d *Driver) classify(c Call) (Outcome, bool) {
	if c.Killed {
		return TimedOut, true
	}
	switch c.Result.Kind {
	case algo.Fault:
		return Error, true
	case algo.Unsupported:
		return CannotSearch, true
	}
	// patterns are taken from the text so there is always an occurrence
	if c.Result.Count == 0 {
		return Error, true
	}
	if d.opts.TimeLimit > 0 && c.Timing.SearchMs > d.opts.limitMs() {
		return TimedOut, true
	}
	return Success, false
}
