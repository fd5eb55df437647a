// Package respbuilder gathers run events into a complete api.RunReport.
package respbuilder

import (
	"time"

	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/bench"
)

// Builder gathers run events and builds a complete api.RunReport.
type Builder struct {
	report   api.RunReport
	started  time.Time
	finished bool
}

func New() *Builder {
	return &Builder{started: time.Now()}
}

// StartRun implements bench.Gatherer.
func (b *Builder) StartRun(info api.RunInfo) {
	b.started = time.Now()
	b.report.RunInfo = info
	b.report.StartTime = b.started.Format(time.RFC3339)
}

// StartLength implements bench.Gatherer.
func (b *Builder) StartLength(patternLen int) {
	b.report.Results = append(b.report.Results, api.LengthResult{PatternLen: patternLen})
}

// FinishCell implements bench.Gatherer.
func (b *Builder) FinishCell(cell api.CellResult) {
	n := len(b.report.Results)
	if n == 0 || b.report.Results[n-1].PatternLen != cell.PatternLen {
		b.StartLength(cell.PatternLen)
		n++
	}
	b.report.Results[n-1].Cells = append(b.report.Results[n-1].Cells, cell)
	if cell.Abandoned {
		b.report.Watchdog.AbandonedThreads++
		if cell.Moved {
			b.report.Watchdog.MovedThreads++
		}
	}
}

// FinishLength implements bench.Gatherer.
func (b *Builder) FinishLength(patternLen int) {}

// FinishRun implements bench.Gatherer.
func (b *Builder) FinishRun(err error) {
	now := time.Now()
	b.finished = true
	b.report.FinishTime = now.Format(time.RFC3339)
	b.report.TotalTimeMs = now.Sub(b.started).Milliseconds()
	b.report.ErrorMessage = bench.ErrorMessage(err)
}

// Finished reports whether FinishRun has been called.
func (b *Builder) Finished() bool { return b.finished }

// Report returns the report gathered so far.
func (b *Builder) Report() api.RunReport {
	return b.report
}
