package textgen

import (
	"fmt"
	"math/rand/v2"
)

// Pattern is a search pattern taken from the text at Offset, or a
// caller-supplied pattern when Offset is -1.
type Pattern struct {
	Bytes  []byte
	Offset int
}

// ExtractPatterns returns count patterns of length m drawn from random
// offsets of text. When fixed is non-empty it is replicated instead.
func ExtractPatterns(text []byte, m, count int, fixed []byte, rng *rand.Rand) ([]Pattern, error) {
	if count < 1 {
		return nil, fmt.Errorf("pattern count must be positive, got %d", count)
	}
	res := make([]Pattern, count)
	if len(fixed) > 0 {
		for i := range res {
			res[i] = Pattern{Bytes: append([]byte(nil), fixed...), Offset: -1}
		}
		return res, nil
	}
	if m < 1 || m > len(text) {
		return nil, fmt.Errorf("pattern length %d out of range for text of %d bytes", m, len(text))
	}
	for i := range res {
		off := rng.IntN(len(text) - m + 1)
		res[i] = Pattern{Bytes: append([]byte(nil), text[off:off+m]...), Offset: off}
	}
	return res, nil
}

// NewRand returns the generator used for text synthesis and pattern
// extraction.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
