package bench_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/algos"
	"github.com/programme-lv/strbench/internal/bench"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/textgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	info   api.RunInfo
	cells  []api.CellResult
	err    error
}

func (r *recorder) StartRun(info api.RunInfo) {
	r.info = info
	r.events = append(r.events, "start")
}

func (r *recorder) StartLength(m int) { r.events = append(r.events, fmt.Sprintf("len %d", m)) }

func (r *recorder) FinishCell(c api.CellResult) {
	r.cells = append(r.cells, c)
	r.events = append(r.events, fmt.Sprintf("cell %d %s", c.PatternLen, c.Algorithm))
}

func (r *recorder) FinishLength(m int) { r.events = append(r.events, fmt.Sprintf("end %d", m)) }

func (r *recorder) FinishRun(err error) {
	r.err = err
	r.events = append(r.events, "finish")
}

type unit struct {
	fn func(ctx context.Context) algo.Result
}

func (u unit) Search(ctx context.Context, _, _ []byte, _ int) (algo.Result, algo.Timing) {
	return u.fn(ctx), algo.Timing{SearchMs: 0.5, PreMs: 0.1}
}

func (u unit) Close() error { return nil }

func loaded(t *testing.T, name string, u algo.Unit) *algo.Algorithm {
	t.Helper()
	a, err := algo.NewAlgorithm(name)
	require.NoError(t, err)
	a.Attach(u, "test:"+name, "hash-"+name)
	return a
}

func builtin(t *testing.T, name string) *algo.Algorithm {
	t.Helper()
	fn, ok := algos.Lookup(name)
	require.True(t, ok)
	return loaded(t, name, algo.Native(fn))
}

func newRunner(t *testing.T, rec *recorder) *bench.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := measure.NewDriver(measure.Options{
		Runs:        3,
		HardTimeout: 100 * time.Millisecond,
		Grace:       time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return bench.NewRunner(d, rec, logger)
}

func randomText(t *testing.T, n, maxPatternLen int) textgen.Buffer {
	t.Helper()
	b := textgen.NewBuilder(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	buf, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 4, Seed: 1}, n, false, maxPatternLen)
	require.NoError(t, err)
	return buf
}

var plan = textgen.Plan{Min: 1, Max: 4, Step: 2, Multiply: true}

func TestRun_CellOrderAndOutcomes(t *testing.T) {
	rec := &recorder{}
	unsupported := loaded(t, "never", unit{fn: func(context.Context) algo.Result {
		return algo.Result{Kind: algo.Unsupported}
	}})
	algs := []*algo.Algorithm{builtin(t, "kmp"), unsupported}

	err := newRunner(t, rec).Run(context.Background(), algs, randomText(t, 1000, 4), bench.Config{Plan: plan, Seed: 5})
	require.NoError(t, err)
	require.NoError(t, rec.err)

	assert.Equal(t, []string{
		"start",
		"len 1", "cell 1 kmp", "cell 1 never", "end 1",
		"len 2", "cell 2 kmp", "cell 2 never", "end 2",
		"len 4", "cell 4 kmp", "cell 4 never", "end 4",
		"finish",
	}, rec.events)

	for _, c := range rec.cells {
		switch c.Algorithm {
		case "kmp":
			assert.Equal(t, api.Success, c.Outcome)
			assert.Equal(t, 3, c.Repetitions)
			require.NotNil(t, c.Stats)
			assert.Nil(t, c.Stats.Counters)
		case "never":
			assert.Equal(t, api.CannotSearch, c.Outcome)
			assert.Equal(t, "-", c.Marker)
			assert.Equal(t, 1, c.Repetitions)
			assert.Nil(t, c.Stats)
		}
	}

	assert.NotEmpty(t, rec.info.RunUuid)
	assert.Equal(t, []int{1, 2, 4}, rec.info.Lengths)
	assert.Equal(t, 1000, rec.info.Text.Length)
	assert.Equal(t, 4, rec.info.Text.AlphabetSize)
	assert.Equal(t, 3, rec.info.Runs)
	require.Len(t, rec.info.Algorithms, 2)
	assert.Equal(t, "*kmp", rec.info.Algorithms[0].Display)
}

func TestRun_KilledUnitIsSkippedAfterwards(t *testing.T) {
	rec := &recorder{}
	calls := 0
	hang := loaded(t, "hang", unit{fn: func(ctx context.Context) algo.Result {
		calls++
		<-ctx.Done()
		return algo.Result{Kind: algo.Fault}
	}})

	err := newRunner(t, rec).Run(context.Background(), []*algo.Algorithm{hang}, randomText(t, 100, 4), bench.Config{Plan: plan})
	require.NoError(t, err)

	require.Len(t, rec.cells, 3)
	assert.Equal(t, api.TimedOut, rec.cells[0].Outcome)
	assert.False(t, rec.cells[0].Skipped)
	assert.False(t, rec.cells[0].Abandoned, "the unit returned within the grace period")
	for _, c := range rec.cells[1:] {
		assert.Equal(t, api.TimedOut, c.Outcome)
		assert.Equal(t, "OUT", c.Marker)
		assert.True(t, c.Skipped)
	}
	assert.True(t, hang.Poisoned())
	assert.Equal(t, 1, calls)
}

func TestRun_FixedPattern(t *testing.T) {
	rec := &recorder{}
	buf := textgen.BufferFrom([]byte("abcabcabc"), 3)
	err := newRunner(t, rec).Run(context.Background(), []*algo.Algorithm{builtin(t, "bf")}, buf,
		bench.Config{Plan: plan, Pattern: []byte("bca")})
	require.NoError(t, err)
	require.Len(t, rec.cells, 1)
	assert.Equal(t, 3, rec.cells[0].PatternLen)
	assert.Equal(t, api.Success, rec.cells[0].Outcome)
	assert.Equal(t, "fixed pattern of 3 bytes", rec.info.Plan)
}

func TestRun_PaddingRestoredBetweenUnits(t *testing.T) {
	rec := &recorder{}
	buf := randomText(t, 200, 4)
	var dirty []bool
	scribble := func(name string) *algo.Algorithm {
		return loaded(t, name, algo.Native(func(_ []byte, _ int, text []byte, n int, _, _ *float64) int {
			pad := text[n:]
			clean := true
			for _, c := range pad {
				if c != 0 {
					clean = false
					break
				}
			}
			dirty = append(dirty, !clean)
			pad[0] = 0xff
			return 1
		}))
	}
	algs := []*algo.Algorithm{scribble("a"), scribble("b")}
	err := newRunner(t, rec).Run(context.Background(), algs, buf, bench.Config{Plan: textgen.Plan{Min: 2, Max: 2}})
	require.NoError(t, err)
	// three repetitions each: only the first call of every cell sees clean padding
	assert.Equal(t, []bool{false, true, true, false, true, true}, dirty)
}

func TestRun_Errors(t *testing.T) {
	r := newRunner(t, &recorder{})
	ctx := context.Background()

	require.Error(t, r.Run(ctx, nil, randomText(t, 100, 4), bench.Config{Plan: plan}))

	unloaded, err := algo.NewAlgorithm("x")
	require.NoError(t, err)
	require.Error(t, r.Run(ctx, []*algo.Algorithm{unloaded}, randomText(t, 100, 4), bench.Config{Plan: plan}))

	kmp := builtin(t, "kmp")
	require.Error(t, r.Run(ctx, []*algo.Algorithm{kmp}, randomText(t, 100, 1), bench.Config{Plan: plan}))
	require.Error(t, r.Run(ctx, []*algo.Algorithm{kmp}, randomText(t, 100, 4), bench.Config{Plan: textgen.Plan{Min: 200, Max: 300}}))
}

func TestRun_Cancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRunner(t, rec).Run(ctx, []*algo.Algorithm{builtin(t, "kmp")}, randomText(t, 100, 4), bench.Config{Plan: plan})
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, rec.err, context.Canceled)
	assert.Equal(t, "finish", rec.events[len(rec.events)-1])

	msg := bench.ErrorMessage(err)
	require.NotNil(t, msg)
	assert.Contains(t, *msg, "interrupted")
	assert.Nil(t, bench.ErrorMessage(nil))
}
