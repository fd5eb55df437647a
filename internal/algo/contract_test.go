package algo_test

import (
	"context"
	"testing"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/stretchr/testify/assert"
)

func TestFromRaw(t *testing.T) {
	cases := []struct {
		raw  int
		want algo.Result
	}{
		{raw: 3, want: algo.MatchedResult(3)},
		{raw: 0, want: algo.MatchedResult(0)},
		{raw: algo.CannotSearch, want: algo.Result{Kind: algo.Unsupported}},
		{raw: algo.SearchError, want: algo.Result{Kind: algo.Fault}},
		{raw: -17, want: algo.Result{Kind: algo.Fault}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, algo.FromRaw(c.raw), "raw %d", c.raw)
	}
}

func TestNative_PassesNominalLength(t *testing.T) {
	var gotM, gotN, gotLen int
	u := algo.Native(func(p []byte, m int, text []byte, n int, searchMs, preMs *float64) int {
		gotM, gotN, gotLen = m, n, len(text)
		*searchMs = 1.5
		*preMs = 0.25
		return 7
	})
	res, timing := u.Search(context.Background(), []byte("ab"), make([]byte, 40), 10)

	assert.Equal(t, algo.MatchedResult(7), res)
	assert.Equal(t, 2, gotM)
	assert.Equal(t, 10, gotN)
	assert.Equal(t, 40, gotLen)
	assert.InDelta(t, 1.75, timing.TotalMs(), 1e-9)
	assert.NoError(t, u.Close())
}

func TestAlgorithm_Lifecycle(t *testing.T) {
	a, err := algo.NewAlgorithm(" KMP ")
	assert.NoError(t, err)
	assert.Equal(t, "kmp", a.Name)
	assert.False(t, a.Loaded())
	assert.Nil(t, a.Searcher())
	assert.Equal(t, "*kmp", a.DisplayName())

	a.Attach(algo.Native(func(_ []byte, _ int, _ []byte, _ int, _, _ *float64) int { return 1 }), "/x/kmp.so", "abc")
	assert.True(t, a.Loaded())
	assert.NotNil(t, a.Searcher())

	a.Tested = true
	assert.Equal(t, "KMP", a.DisplayName())
	assert.Equal(t, "KMP", a.RecordKey())

	assert.NoError(t, a.Detach())
	assert.NoError(t, a.Detach())
	assert.False(t, a.Loaded())
}
