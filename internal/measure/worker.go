package measure

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/cpu"
	"github.com/programme-lv/strbench/internal/perf"
)

// Call is the outcome of a single invocation on the measurement thread.
type Call struct {
	Result   algo.Result
	Timing   algo.Timing
	Counters perf.Sample
	// Killed means the hard timeout fired before the call returned.
	Killed bool
	// Abandoned means the call did not return even after cancellation and
	// its thread was given up.
	Abandoned bool
	// Moved means the abandoned thread no longer runs on the measurement cpu.
	Moved bool
}

type job struct {
	ctx     context.Context
	s       algo.Searcher
	pattern []byte
	text    []byte
	n       int
	done    chan Call
}

type workerInfo struct {
	core     int
	counters bool
	// tid is the kernel id of the locked thread, -1 when unknown
	tid int
}

// worker owns one locked OS thread. Searches, pinning and per-thread
// counters all happen on that thread.
type worker struct {
	jobs   chan *job
	quit   chan struct{}
	logger *slog.Logger
	info   workerInfo
}

func startWorker(pin cpu.Pin, sel perf.Selection, logger *slog.Logger) (*worker, workerInfo) {
	w := &worker{
		jobs:   make(chan *job),
		quit:   make(chan struct{}),
		logger: logger,
	}
	ready := make(chan workerInfo, 1)
	go w.loop(pin, sel, ready)
	w.info = <-ready
	return w, w.info
}

func (w *worker) loop(pin cpu.Pin, sel perf.Selection, ready chan<- workerInfo) {
	// never unlocked: an exiting goroutine takes its pinned thread with it
	runtime.LockOSThread()

	info := workerInfo{core: -1, tid: cpu.ThreadID()}
	core, err := pin.Apply()
	if err != nil {
		w.logger.Warn("failed to pin measurement thread", "pin", pin.String(), "error", err)
	} else {
		info.core = core
	}

	counters, err := perf.Open(sel)
	if err != nil {
		w.logger.Warn("hardware counters unavailable", "counters", sel.String(), "error", err)
		counters = perf.Noop()
	} else {
		info.counters = sel != perf.None
	}
	defer counters.Close()
	ready <- info

	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j.done <- w.run(j, counters)
		}
	}
}

func (w *worker) run(j *job, counters perf.Counters) (c Call) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("algorithm panicked", "panic", r)
			c = Call{Result: algo.Result{Kind: algo.Fault}}
		}
	}()
	if err := counters.Start(); err != nil {
		w.logger.Debug("failed to start counters", "error", err)
	}
	c.Result, c.Timing = j.s.Search(j.ctx, j.pattern, j.text, j.n)
	sample, err := counters.Stop()
	if err != nil {
		w.logger.Debug("failed to read counters", "error", err)
	}
	c.Counters = sample
	return c
}

func (w *worker) stop() { close(w.quit) }
