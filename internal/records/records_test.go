package records_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHash(t *testing.T, name, hash string) *algo.Algorithm {
	t.Helper()
	a, err := algo.NewAlgorithm(name)
	require.NoError(t, err)
	a.Hash = hash
	return a
}

func TestTestRecords_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "tested.tsv")
	r, err := records.LoadTestRecords(path)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Append(withHash(t, "kmp", "aa"), withHash(t, "hor", "bb"), withHash(t, "nohash", "")))
	require.NoError(t, r.Append(withHash(t, "KMP", "aa")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "KMP\taa\nHOR\tbb\n", string(data))

	again, err := records.LoadTestRecords(path)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Len())
	assert.True(t, again.Has("kmp", "aa"))
	assert.True(t, again.Has("KMP", "aa"))
	assert.False(t, again.Has("kmp", "bb"))
	assert.False(t, again.Has("kmp", ""))
}

func TestTestRecords_FailedAppendCanBeRetried(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(state, []byte("not a directory"), 0644))
	path := filepath.Join(state, "tested.tsv")
	r, err := records.LoadTestRecords(path)
	require.NoError(t, err)

	require.Error(t, r.Append(withHash(t, "kmp", "aa")))
	assert.False(t, r.Has("kmp", "aa"))
	assert.Equal(t, 0, r.Len())

	require.NoError(t, os.Remove(state))
	require.NoError(t, r.Append(withHash(t, "kmp", "aa"), withHash(t, "KMP", "aa")))
	assert.True(t, r.Has("kmp", "aa"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "KMP\taa\n", string(data))
}

func TestTestRecords_Apply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tested.tsv")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nBF\t11\nKMP\told\n\n"), 0644))
	r, err := records.LoadTestRecords(path)
	require.NoError(t, err)

	set := algo.NewSet()
	bf := withHash(t, "bf", "11")
	kmp := withHash(t, "kmp", "new")
	_, err = set.Add(bf)
	require.NoError(t, err)
	_, err = set.Add(kmp)
	require.NoError(t, err)

	r.Apply(set)
	assert.True(t, bf.Tested)
	assert.Equal(t, "BF", bf.DisplayName())
	assert.False(t, kmp.Tested)
	assert.Equal(t, "*kmp", kmp.DisplayName())
}

func TestTestRecords_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tested.tsv")
	require.NoError(t, os.WriteFile(path, []byte("BF 11\n"), 0644))
	_, err := records.LoadTestRecords(path)
	require.Error(t, err)
}

func TestSelected_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "selected")
	set, err := records.LoadSelected(path)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())

	set, err = algo.SetOf("KMP", "hor", "bf")
	require.NoError(t, err)
	require.NoError(t, records.SaveSelected(path, set))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kmp\nhor\nbf\n", string(data))

	loaded, err := records.LoadSelected(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kmp", "hor", "bf"}, loaded.Names())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
