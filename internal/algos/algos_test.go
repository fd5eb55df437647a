package algos_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/algos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reference(x, y []byte) int {
	count := 0
	for j := 0; j+len(x) <= len(y); j++ {
		if bytes.Equal(y[j:j+len(x)], x) {
			count++
		}
	}
	return count
}

func run(fn algo.RawSearchFunc, x, y []byte) int {
	var searchMs, preMs float64
	// padding past n carries a copy of the pattern, which must not be counted
	padded := append(append([]byte{}, y...), x...)
	return fn(x, len(x), padded, len(y), &searchMs, &preMs)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"bf", "bm", "hor", "kmp", "rb", "so", "std"}, algos.Names())
	_, ok := algos.Lookup("HOR")
	assert.True(t, ok)
	_, ok = algos.Lookup("horspool")
	assert.False(t, ok)
}

func TestKernels_FixedCases(t *testing.T) {
	cases := []struct {
		x, y string
		want int
	}{
		{"aba", "ababababab", 4},
		{"a", "a", 1},
		{"abc", "ab", 0},
		{"aaaa", "aaaaaaa", 4},
		{"xyz", "abcdefg", 0},
		{"abcabd", "abcabcabd", 1},
		{"needle", "haystack with a needle at the end needle", 2},
	}
	for _, name := range algos.Names() {
		fn, _ := algos.Lookup(name)
		for _, c := range cases {
			assert.Equal(t, c.want, run(fn, []byte(c.x), []byte(c.y)), "%s: %q in %q", name, c.x, c.y)
		}
	}
}

func TestKernels_RandomAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, sigma := range []int{1, 2, 4, 26, 256} {
		y := make([]byte, 2000)
		for i := range y {
			y[i] = byte(rng.IntN(sigma))
		}
		for _, m := range []int{1, 2, 3, 5, 8, 17, 33, 64, 65, 100} {
			off := rng.IntN(len(y) - m)
			x := append([]byte{}, y[off:off+m]...)
			want := reference(x, y)
			for _, name := range algos.Names() {
				fn, _ := algos.Lookup(name)
				got := run(fn, x, y)
				if name == "so" && m > 64 {
					assert.Equal(t, algo.CannotSearch, got)
					continue
				}
				require.Equal(t, want, got, "%s sigma=%d m=%d", name, sigma, m)
			}
		}
	}
}

func TestKernels_EmptyPattern(t *testing.T) {
	for _, name := range algos.Names() {
		fn, _ := algos.Lookup(name)
		assert.Equal(t, algo.CannotSearch, run(fn, nil, []byte("abc")), name)
	}
}
