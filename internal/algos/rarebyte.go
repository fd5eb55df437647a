package algos

import (
	"bytes"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

// sampleSize bounds the text prefix used to rank byte frequencies.
const sampleSize = 4096

// RareByte scans for the pattern byte that is least frequent in a sample of
// the text and verifies each candidate window.
func RareByte(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	start := time.Now()
	off := rarestOffset(x, m, y[:min(n, sampleSize)])
	*preMs = msSince(start)

	start = time.Now()
	count := 0
	limit := n - m
	rare := x[off]
	for j := 0; j <= limit; j++ {
		k := bytes.IndexByte(y[j+off:limit+off+1], rare)
		if k < 0 {
			break
		}
		j += k
		if bytes.Equal(y[j:j+m], x[:m]) {
			count++
		}
	}
	*searchMs = msSince(start)
	return count
}

func rarestOffset(x []byte, m int, sample []byte) int {
	var freq [256]int
	for _, c := range sample {
		freq[c]++
	}
	best := 0
	for i := 1; i < m; i++ {
		if freq[x[i]] < freq[x[best]] {
			best = i
		}
	}
	return best
}
