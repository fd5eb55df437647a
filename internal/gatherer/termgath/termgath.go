// Package termgath prints run progress and the final result table to a
// terminal.
package termgath

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/strbench/api"
)

var (
	testedName   = color.New(color.FgGreen, color.Bold)
	untestedName = color.New(color.FgYellow)
	failedCell   = color.New(color.FgRed)
)

// TerminalGatherer implements bench.Gatherer.
type TerminalGatherer struct {
	w         io.Writer
	precision int
	started   time.Time
	info      api.RunInfo
	cells     map[int]map[string]api.CellResult
}

func New(w io.Writer, precision int) *TerminalGatherer {
	return &TerminalGatherer{
		w:         w,
		precision: max(precision, 0),
		started:   time.Now(),
		cells:     make(map[int]map[string]api.CellResult),
	}
}

func (t *TerminalGatherer) StartRun(info api.RunInfo) {
	t.started = time.Now()
	t.info = info
	fmt.Fprintf(t.w, "== Run %s started ==\n", info.RunUuid)
	if info.Description != "" {
		fmt.Fprintln(t.w, info.Description)
	}
	fmt.Fprintf(t.w, "text: %s, %d bytes, alphabet %d, entropy %.3f bits\n",
		info.Text.Source, info.Text.Length, info.Text.AlphabetSize, info.Text.Entropy)
	fmt.Fprintf(t.w, "plan: %s, %d lengths, %d runs, time limit %gms, hard timeout %gms\n",
		info.Plan, len(info.Lengths), info.Runs, info.TimeLimitMs, info.HardTimeoutMs)
	pin := "not pinned"
	if info.Host.PinnedCPU >= 0 {
		pin = fmt.Sprintf("pinned to cpu %d", info.Host.PinnedCPU)
	}
	fmt.Fprintf(t.w, "host: %s %s/%s, %d cpus, %s, counters %s\n",
		info.Host.Hostname, info.Host.OS, info.Host.Arch, info.Host.NumCPU, pin, info.Counters)

	names := make([]string, 0, len(info.Algorithms))
	for _, a := range info.Algorithms {
		names = append(names, AlgorithmName(a))
	}
	fmt.Fprintf(t.w, "algorithms: %s\n", strings.Join(names, " "))
}

func (t *TerminalGatherer) StartLength(patternLen int) {
	fmt.Fprintf(t.w, "-- m=%d --\n", patternLen)
}

func (t *TerminalGatherer) FinishCell(cell api.CellResult) {
	row, ok := t.cells[cell.PatternLen]
	if !ok {
		row = make(map[string]api.CellResult)
		t.cells[cell.PatternLen] = row
	}
	row[cell.Algorithm] = cell

	name := t.display(cell.Algorithm)
	if cell.Outcome != api.Success || cell.Stats == nil {
		status := string(cell.Outcome)
		if cell.Skipped {
			status += ", skipped"
		}
		if cell.Abandoned && !cell.Moved {
			status += ", stuck thread shares the cpu"
		}
		fmt.Fprintf(t.w, "  %-16s %s (%s)\n", name, failedCell.Sprint(cell.Marker), status)
		return
	}
	fmt.Fprintf(t.w, "  %-16s %s ms  %s GB/s\n", name,
		FormatMs(cell.Stats.SearchMs.Mean, t.precision),
		FormatMs(cell.Stats.ThroughputGBps.Mean, t.precision))
}

func (t *TerminalGatherer) FinishLength(patternLen int) {}

func (t *TerminalGatherer) FinishRun(err error) {
	if len(t.cells) > 0 {
		t.renderTable()
	}
	dur := time.Since(t.started).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(t.w, "== Run failed after %s: %v ==\n", dur, err)
		return
	}
	fmt.Fprintf(t.w, "== Run finished in %s ==\n", dur)
}

func (t *TerminalGatherer) display(name string) string {
	for _, a := range t.info.Algorithms {
		if a.Name == name {
			return a.Display
		}
	}
	return name
}

// AlgorithmName colours the display name by test status.
func AlgorithmName(a api.AlgorithmInfo) string {
	if a.Tested {
		return testedName.Sprint(a.Display)
	}
	return untestedName.Sprint(a.Display)
}

// FormatMs formats a measurement with a fixed number of decimals.
func FormatMs(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// FormatCell is the table text of a cell: the mean search time of a
// successful cell, the outcome marker otherwise.
func FormatCell(c api.CellResult, precision int) string {
	if c.Outcome == api.Success && c.Stats != nil {
		return FormatMs(c.Stats.SearchMs.Mean, precision)
	}
	if c.Marker != "" {
		return c.Marker
	}
	return "?"
}
