// Package gatherer holds the result gatherers of a benchmark run.
package gatherer

import (
	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/bench"
)

// Multi forwards every event to each gatherer in order.
type Multi []bench.Gatherer

func (m Multi) StartRun(info api.RunInfo) {
	for _, g := range m {
		g.StartRun(info)
	}
}

func (m Multi) StartLength(patternLen int) {
	for _, g := range m {
		g.StartLength(patternLen)
	}
}

func (m Multi) FinishCell(cell api.CellResult) {
	for _, g := range m {
		g.FinishCell(cell)
	}
}

func (m Multi) FinishLength(patternLen int) {
	for _, g := range m {
		g.FinishLength(patternLen)
	}
}

func (m Multi) FinishRun(err error) {
	for _, g := range m {
		g.FinishRun(err)
	}
}
