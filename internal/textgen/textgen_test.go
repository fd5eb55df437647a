package textgen_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/strbench/internal/textgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPlan_StrictlyIncreasing(t *testing.T) {
	plans := []textgen.Plan{
		{Min: 1, Max: 100, Step: 0},
		{Min: 1, Max: 100, Step: 1, Multiply: true},
		{Min: 0, Max: 50, Step: -3},
		{Min: 2, Max: 4096, Step: 2, Multiply: true},
		{Min: 3, Max: 40, Step: 7},
		{Min: 1, Max: 1000, Step: 0, Multiply: true},
	}
	for _, p := range plans {
		lengths := p.Lengths(1 << 20)
		require.NotEmpty(t, lengths, "%v", p)
		for i := 1; i < len(lengths); i++ {
			assert.Greater(t, lengths[i], lengths[i-1], "%v", p)
		}
		assert.LessOrEqual(t, lengths[len(lengths)-1], p.Max)
	}
}

func TestPlan_Sequences(t *testing.T) {
	assert.Equal(t, []int{2, 4, 8, 16, 32}, textgen.Plan{Min: 2, Max: 32, Step: 2, Multiply: true}.Lengths(1000))
	assert.Equal(t, []int{3, 10, 17}, textgen.Plan{Min: 3, Max: 20, Step: 7}.Lengths(1000))
	assert.Equal(t, []int{1, 2, 3, 4}, textgen.Plan{Min: 1, Max: 100, Step: 0}.Lengths(4))
	assert.Empty(t, textgen.Plan{Min: 10, Max: 100, Step: 1}.Lengths(5))
}

func TestExtractPatterns_AreTextSlices(t *testing.T) {
	rng := textgen.NewRand(42)
	text := []byte("the quick brown fox jumps over the lazy dog")
	for _, m := range []int{1, 5, len(text)} {
		pats, err := textgen.ExtractPatterns(text, m, 50, nil, rng)
		require.NoError(t, err)
		require.Len(t, pats, 50)
		for _, p := range pats {
			require.Len(t, p.Bytes, m)
			assert.Equal(t, text[p.Offset:p.Offset+m], p.Bytes)
		}
	}
}

func TestExtractPatterns_Fixed(t *testing.T) {
	pats, err := textgen.ExtractPatterns([]byte("abc"), 99, 3, []byte("zz"), textgen.NewRand(1))
	require.NoError(t, err)
	for _, p := range pats {
		assert.Equal(t, []byte("zz"), p.Bytes)
		assert.Equal(t, -1, p.Offset)
	}
	pats[0].Bytes[0] = 'q'
	assert.Equal(t, []byte("zz"), pats[1].Bytes)
}

func TestExtractPatterns_OutOfRange(t *testing.T) {
	_, err := textgen.ExtractPatterns([]byte("abc"), 4, 1, nil, textgen.NewRand(1))
	require.Error(t, err)
	_, err = textgen.ExtractPatterns([]byte("abc"), 1, 0, nil, textgen.NewRand(1))
	require.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	s := textgen.ComputeStats(bytes.Repeat([]byte{7}, 100))
	assert.Equal(t, 1, s.AlphabetSize)
	assert.Equal(t, byte(7), s.MaxByte)
	assert.Equal(t, 0.0, s.Entropy)
	assert.Equal(t, 100, s.Freq[7])

	s = textgen.ComputeStats([]byte("abab"))
	assert.Equal(t, 2, s.AlphabetSize)
	assert.Equal(t, byte('b'), s.MaxByte)
	assert.InDelta(t, 1.0, s.Entropy, 1e-12)

	s = textgen.ComputeStats([]byte("abcd"))
	assert.InDelta(t, 2.0, s.Entropy, 1e-12)
}

func TestBuild_RandomSigmaOne(t *testing.T) {
	b := textgen.NewBuilder(nil, nil, discard())
	buf, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 1, Seed: 3}, 100, false, 10)
	require.NoError(t, err)
	require.Equal(t, 100, buf.Len())
	assert.Equal(t, bytes.Repeat([]byte{0}, 100), buf.Text())
	assert.Equal(t, textgen.PaddedSize(100, 10), len(buf.Bytes()))
	assert.GreaterOrEqual(t, buf.Padding(), textgen.PadFactor*10)
}

func TestBuild_RandomAlphabetBound(t *testing.T) {
	b := textgen.NewBuilder(nil, nil, discard())
	buf, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 4, Seed: 9}, 10000, false, 1)
	require.NoError(t, err)
	s := textgen.ComputeStats(buf.Text())
	assert.Equal(t, 4, s.AlphabetSize)
	assert.Equal(t, byte(3), s.MaxByte)

	again, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 4, Seed: 9}, 10000, false, 1)
	require.NoError(t, err)
	assert.Equal(t, buf.Text(), again.Text())

	_, err = b.Build(context.Background(), textgen.Source{Kind: textgen.FromRandom, Sigma: 257}, 10, false, 1)
	require.Error(t, err)
}

func TestBuild_InlineFill(t *testing.T) {
	b := textgen.NewBuilder(nil, nil, discard())
	src := textgen.Source{Kind: textgen.FromInline, Data: []byte("abc")}

	buf, err := b.Build(context.Background(), src, 10, false, 2)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf.Text()))

	buf, err = b.Build(context.Background(), src, 10, true, 2)
	require.NoError(t, err)
	assert.Equal(t, "abcabcabca", string(buf.Text()))

	buf, err = b.Build(context.Background(), textgen.Source{Kind: textgen.FromInline, Data: []byte("abcdefgh")}, 4, false, 2)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf.Text()))
}

func TestBuild_FilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpus, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "a.txt"), []byte("hello "), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "b.txt"), []byte("world"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(corpus, "nested"), 0755))

	var zbuf bytes.Buffer
	enc, err := zstd.NewWriter(&zbuf)
	require.NoError(t, err)
	_, err = enc.Write([]byte("!zst"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt.zst"), zbuf.Bytes(), 0644))

	b := textgen.NewBuilder([]string{dir}, nil, discard())
	src := textgen.Source{Kind: textgen.FromFiles, Paths: []string{"corpus", "missing.txt", "c.txt.zst"}}
	buf, err := b.Build(context.Background(), src, 100, false, 4)
	require.NoError(t, err)
	assert.Equal(t, "hello world!zst", string(buf.Text()))

	buf, err = b.Build(context.Background(), src, 8, false, 4)
	require.NoError(t, err)
	assert.Equal(t, "hello wo", string(buf.Text()))
}

func TestBuild_NoData(t *testing.T) {
	b := textgen.NewBuilder(nil, nil, discard())
	_, err := b.Build(context.Background(), textgen.Source{Kind: textgen.FromFiles, Paths: []string{"/does/not/exist"}}, 10, false, 1)
	require.ErrorIs(t, err, textgen.ErrNoData)

	_, err = b.Build(context.Background(), textgen.Source{Kind: textgen.FromFiles, Paths: []string{"https://bucket.s3.eu-central-1.amazonaws.com/x"}}, 10, false, 1)
	require.ErrorIs(t, err, textgen.ErrNoData)
}

func TestBuffer_Restore(t *testing.T) {
	buf := textgen.BufferFrom([]byte("abc"), 2)
	copy(buf.Bytes()[3:], "xx")
	buf.Restore()
	assert.Equal(t, "abc", string(buf.Text()))
	assert.Equal(t, make([]byte, buf.Padding()), buf.Bytes()[3:])
}
