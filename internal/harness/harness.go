// Package harness checks algorithms against a brute-force oracle on a fixed
// battery and on random texts over growing alphabets.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/textgen"
)

const (
	randomPatterns      = 10
	maxRandomPatternLen = 32
	maxAffixLen         = 15
)

// Invoker runs one search with preemption, as measure.Driver does.
type Invoker interface {
	Invoke(ctx context.Context, s algo.Searcher, pattern, text []byte, n int) (measure.Call, error)
}

type Mode int

const (
	Quick Mode = iota
	Full
)

func (m Mode) String() string {
	if m == Quick {
		return "quick"
	}
	return "full"
}

// Sigmas lists the alphabet sizes of the random battery.
func (m Mode) Sigmas() []int {
	if m == Quick {
		return []int{1, 2, 4, 8, 16, 32, 64, 128, 256}
	}
	res := make([]int, 256)
	for i := range res {
		res[i] = i + 1
	}
	return res
}

func (m Mode) TextLen() int {
	if m == Quick {
		return 256
	}
	return 1024
}

type Status int

const (
	Untested Status = iota
	Passed
	Failed
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	}
	return "untested"
}

// Failure describes the first check an algorithm failed.
type Failure struct {
	Check   string
	Sigma   int
	Pattern []byte
	TextLen int
	Want    int
	Got     string
}

func (f Failure) String() string {
	where := f.Check
	if f.Sigma > 0 {
		where = fmt.Sprintf("%s sigma=%d", f.Check, f.Sigma)
	}
	return fmt.Sprintf("%s: m=%d n=%d want %d got %s", where, len(f.Pattern), f.TextLen, f.Want, f.Got)
}

type Report struct {
	Name    string
	Hash    string
	Status  Status
	Counted int
	Skipped int
	Failure *Failure
	// Killed means an invocation hit the hard timeout.
	Killed bool
}

type Harness struct {
	inv     Invoker
	mode    Mode
	seed    uint64
	logger  *slog.Logger
	battery []Case
	texts   *textgen.Builder
}

func New(inv Invoker, mode Mode, seed uint64, logger *slog.Logger) (*Harness, error) {
	battery, err := FixedBattery()
	if err != nil {
		return nil, err
	}
	return &Harness{
		inv:     inv,
		mode:    mode,
		seed:    seed,
		logger:  logger,
		battery: battery,
		texts:   textgen.NewBuilder(nil, nil, logger),
	}, nil
}

// Run tests every algorithm in order, calling report after each one.
func (h *Harness) Run(ctx context.Context, algs []*algo.Algorithm, report func(Report)) ([]Report, error) {
	res := make([]Report, 0, len(algs))
	for _, a := range algs {
		r, err := h.Test(ctx, a)
		if err != nil {
			return res, err
		}
		res = append(res, r)
		if report != nil {
			report(r)
		}
	}
	return res, nil
}

// Test runs the fixed battery, then the random battery one alphabet size at
// a time, stopping at the first alphabet size with a failure.
func (h *Harness) Test(ctx context.Context, a *algo.Algorithm) (Report, error) {
	r := Report{Name: a.Name, Hash: a.Hash}
	s := a.Searcher()
	if s == nil || a.Poisoned() {
		return r, nil
	}

	for _, c := range h.battery {
		if err := h.check(ctx, s, &r, c.Name, 0, c.Pattern, c.Text); err != nil {
			return r, err
		}
		if r.Failure != nil {
			return h.finish(a, r), nil
		}
	}

	for _, sigma := range h.mode.Sigmas() {
		h.logger.Debug("testing alphabet size", "algorithm", a.Name, "sigma", sigma)
		if err := h.testSigma(ctx, s, &r, sigma); err != nil {
			return r, err
		}
		if r.Failure != nil {
			break
		}
	}
	return h.finish(a, r), nil
}

func (h *Harness) finish(a *algo.Algorithm, r Report) Report {
	switch {
	case r.Failure != nil:
		r.Status = Failed
	case r.Counted == 0:
		r.Status = Untested
	default:
		r.Status = Passed
	}
	if r.Killed {
		a.Poison()
	}
	return r
}

func (h *Harness) testSigma(ctx context.Context, s algo.Searcher, r *Report, sigma int) error {
	seed := h.seed + uint64(sigma)
	src := textgen.Source{Kind: textgen.FromRandom, Sigma: sigma, Seed: seed}
	buf, err := h.texts.Build(ctx, src, h.mode.TextLen(), false, maxRandomPatternLen)
	if err != nil {
		return fmt.Errorf("failed to build test text: %w", err)
	}
	text := slices.Clone(buf.Text())
	rng := textgen.NewRand(seed)

	var pats [][]byte
	for range randomPatterns {
		m := 1 + rng.IntN(min(maxRandomPatternLen, len(text)))
		p, err := textgen.ExtractPatterns(text, m, 1, nil, rng)
		if err != nil {
			return err
		}
		pats = append(pats, p[0].Bytes)
	}
	for _, p := range pats {
		if err := h.check(ctx, s, r, "random", sigma, p, text); err != nil || r.Failure != nil {
			return err
		}
	}
	for _, p := range pats {
		if err := h.check(ctx, s, r, "corrupted", sigma, corrupt(p, rng), text); err != nil || r.Failure != nil {
			return err
		}
	}
	for k := 1; k <= min(maxAffixLen, len(text)); k++ {
		if err := h.check(ctx, s, r, "prefix", sigma, text[:k], text); err != nil || r.Failure != nil {
			return err
		}
	}
	for k := 1; k <= min(maxAffixLen, len(text)); k++ {
		if err := h.check(ctx, s, r, "suffix", sigma, text[len(text)-k:], text); err != nil || r.Failure != nil {
			return err
		}
	}
	return nil
}

// corrupt returns a copy of p with its first byte changed.
func corrupt(p []byte, rng *rand.Rand) []byte {
	q := slices.Clone(p)
	q[0] += byte(1 + rng.IntN(255))
	return q
}

// check runs one invocation on a private padded copy of text and compares it
// with the oracle.
func (h *Harness) check(ctx context.Context, s algo.Searcher, r *Report, name string, sigma int, pattern, text []byte) error {
	want := Oracle(pattern, text)
	buf := textgen.BufferFrom(text, len(pattern))
	c, err := h.inv.Invoke(ctx, s, slices.Clone(pattern), buf.Bytes(), buf.Len())
	if err != nil {
		return err
	}

	fail := func(got string) {
		r.Failure = &Failure{
			Check:   name,
			Sigma:   sigma,
			Pattern: slices.Clone(pattern),
			TextLen: len(text),
			Want:    want,
			Got:     got,
		}
	}
	if c.Killed {
		r.Killed = true
		r.Counted++
		fail(measure.TimedOut.String())
		return nil
	}
	switch c.Result.Kind {
	case algo.Unsupported:
		r.Skipped++
	case algo.Fault:
		r.Counted++
		fail(measure.Error.String())
	default:
		r.Counted++
		if c.Result.Count != want {
			fail(fmt.Sprintf("%d", c.Result.Count))
		}
	}
	return nil
}
