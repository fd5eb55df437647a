package harness_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/algos"
	"github.com/programme-lv/strbench/internal/harness"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/textgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts measure.Options) *harness.Harness {
	t.Helper()
	d, err := measure.NewDriver(opts, discard())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	h, err := harness.New(d, harness.Quick, 1, discard())
	require.NoError(t, err)
	return h
}

func loaded(t *testing.T, name string, fn algo.RawSearchFunc) *algo.Algorithm {
	t.Helper()
	a, err := algo.NewAlgorithm(name)
	require.NoError(t, err)
	a.Attach(algo.Native(fn), "", "hash-"+name)
	return a
}

func TestOracle(t *testing.T) {
	assert.Equal(t, 4, harness.Oracle([]byte("aba"), []byte("ababababab")))
	assert.Equal(t, 0, harness.Oracle([]byte("abc"), []byte("ab")))
	assert.Equal(t, 0, harness.Oracle(nil, []byte("ab")))
}

func TestOracle_SigmaOneText(t *testing.T) {
	b := textgen.NewBuilder(nil, nil, discard())
	buf, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 1}, 100, false, 10)
	require.NoError(t, err)
	pats, err := textgen.ExtractPatterns(buf.Text(), 10, 1, nil, textgen.NewRand(5))
	require.NoError(t, err)
	assert.Equal(t, 91, harness.Oracle(pats[0].Bytes, buf.Text()))
}

func TestFixedBattery_MatchesOracle(t *testing.T) {
	cases, err := harness.FixedBattery()
	require.NoError(t, err)
	require.NotEmpty(t, cases)
	for _, c := range cases {
		if c.Expect < 0 {
			continue
		}
		assert.Equal(t, c.Expect, harness.Oracle(c.Pattern, c.Text), c.Name)
	}
}

func TestParseBattery(t *testing.T) {
	cases, err := harness.ParseBattery([]byte(`
[[cases]]
name = "rep"
pattern = "ab"
pattern_repeat = 2
text = "ab"
text_repeat = 3
`))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []byte("abab"), cases[0].Pattern)
	assert.Equal(t, []byte("ababab"), cases[0].Text)
	assert.Equal(t, -1, cases[0].Expect)

	_, err = harness.ParseBattery([]byte("[[cases]]\nname = \"x\"\ntext = \"a\"\n"))
	require.Error(t, err)
	_, err = harness.ParseBattery([]byte("[[cases"))
	require.Error(t, err)
}

func TestModes(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4, 8, 16, 32, 64, 128, 256}, harness.Quick.Sigmas())
	full := harness.Full.Sigmas()
	assert.Len(t, full, 256)
	assert.Equal(t, 1, full[0])
	assert.Equal(t, 256, full[255])
	assert.Equal(t, 256, harness.Quick.TextLen())
	assert.Equal(t, 1024, harness.Full.TextLen())
}

func TestBuiltinsPass(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	for _, name := range algos.Names() {
		fn, _ := algos.Lookup(name)
		r, err := h.Test(context.Background(), loaded(t, name, fn))
		require.NoError(t, err)
		require.Nil(t, r.Failure, "%s: %v", name, r.Failure)
		assert.Equal(t, harness.Passed, r.Status, name)
		assert.Positive(t, r.Counted)
	}
}

func TestShiftOrSkipsLongPatterns(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	fn, _ := algos.Lookup("so")
	r, err := h.Test(context.Background(), loaded(t, "so", fn))
	require.NoError(t, err)
	assert.Equal(t, harness.Passed, r.Status)
	assert.Positive(t, r.Skipped)
}

func TestOffByOneFails(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	// misses occurrences ending at the last byte
	buggy := func(x []byte, m int, y []byte, n int, _, _ *float64) int {
		return harness.Oracle(x[:m], y[:max(0, n-1)])
	}
	r, err := h.Test(context.Background(), loaded(t, "buggy", buggy))
	require.NoError(t, err)
	assert.Equal(t, harness.Failed, r.Status)
	require.NotNil(t, r.Failure)
	assert.Equal(t, "full match", r.Failure.Check)
	assert.Equal(t, 1, r.Failure.Want)
	assert.Equal(t, "0", r.Failure.Got)
}

func TestFailFastOnAlphabet(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	// correct on every text except those over a two-letter alphabet {0,1}
	calls := 0
	picky := func(x []byte, m int, y []byte, n int, _, _ *float64) int {
		calls++
		want := harness.Oracle(x[:m], y[:n])
		if n == 256 && textgen.ComputeStats(y[:n]).AlphabetSize == 2 && y[0] <= 1 {
			return want + 1
		}
		return want
	}
	r, err := h.Test(context.Background(), loaded(t, "picky", picky))
	require.NoError(t, err)
	assert.Equal(t, harness.Failed, r.Status)
	require.NotNil(t, r.Failure)
	assert.Equal(t, 2, r.Failure.Sigma)
	assert.Equal(t, "random", r.Failure.Check)

	// fixed battery, all of sigma 1, then the first check of sigma 2
	battery, err := harness.FixedBattery()
	require.NoError(t, err)
	assert.Equal(t, len(battery)+10+10+15+15+1, calls)
}

func TestAlwaysUnsupportedIsUntested(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	r, err := h.Test(context.Background(), loaded(t, "nope", func(_ []byte, _ int, _ []byte, _ int, _, _ *float64) int {
		return algo.CannotSearch
	}))
	require.NoError(t, err)
	assert.Equal(t, harness.Untested, r.Status)
	assert.Zero(t, r.Counted)
	assert.Positive(t, r.Skipped)
}

func TestErrorSentinelFails(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	r, err := h.Test(context.Background(), loaded(t, "err", func(_ []byte, _ int, _ []byte, _ int, _, _ *float64) int {
		return algo.SearchError
	}))
	require.NoError(t, err)
	assert.Equal(t, harness.Failed, r.Status)
	assert.Equal(t, "error", r.Failure.Got)
}

func TestRunawayIsKilledAndPoisoned(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1, HardTimeout: 20 * time.Millisecond, Grace: 20 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)
	a := loaded(t, "loop", func(x []byte, m int, y []byte, n int, _, _ *float64) int {
		if bytes.Equal(x[:m], []byte("aba")) {
			<-release
		}
		return harness.Oracle(x[:m], y[:n])
	})

	r, err := h.Test(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, harness.Failed, r.Status)
	assert.True(t, r.Killed)
	assert.Equal(t, "overlapping repeats", r.Failure.Check)
	assert.True(t, a.Poisoned())
}

func TestUnloadedIsUntested(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	a, err := algo.NewAlgorithm("ghost")
	require.NoError(t, err)
	r, err := h.Test(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, harness.Untested, r.Status)
}

func TestRun_ReportsEach(t *testing.T) {
	h := newHarness(t, measure.Options{Runs: 1})
	bf, _ := algos.Lookup("bf")
	var seen []string
	reports, err := h.Run(context.Background(), []*algo.Algorithm{loaded(t, "bf", bf), loaded(t, "bf2", bf)}, func(r harness.Report) {
		seen = append(seen, r.Name)
	})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Equal(t, []string{"bf", "bf2"}, seen)
	assert.Equal(t, "hash-bf", reports[0].Hash)
}
