package algos

import (
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

func Horspool(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	start := time.Now()
	bc := badCharShift(x, m)
	*preMs = msSince(start)

	start = time.Now()
	count := 0
	for j := 0; j <= n-m; j += bc[y[j+m-1]] {
		if y[j+m-1] == x[m-1] && string(y[j:j+m-1]) == string(x[:m-1]) {
			count++
		}
	}
	*searchMs = msSince(start)
	return count
}

func badCharShift(x []byte, m int) *[256]int {
	var bc [256]int
	for i := range bc {
		bc[i] = m
	}
	for i := 0; i < m-1; i++ {
		bc[x[i]] = m - 1 - i
	}
	return &bc
}
