package algos

import (
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

func KnuthMorrisPratt(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	start := time.Now()
	next := kmpNext(x, m)
	*preMs = msSince(start)

	start = time.Now()
	count := 0
	i := 0
	for j := 0; j < n; j++ {
		for i > 0 && x[i] != y[j] {
			i = next[i-1]
		}
		if x[i] == y[j] {
			i++
		}
		if i == m {
			count++
			i = next[i-1]
		}
	}
	*searchMs = msSince(start)
	return count
}

// kmpNext returns, for every prefix length i+1, the length of its longest
// proper border.
func kmpNext(x []byte, m int) []int {
	next := make([]int, m)
	k := 0
	for i := 1; i < m; i++ {
		for k > 0 && x[k] != x[i] {
			k = next[k-1]
		}
		if x[k] == x[i] {
			k++
		}
		next[i] = k
	}
	return next
}
