package algos

import (
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

func BruteForce(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	*preMs = 0
	start := time.Now()
	count := 0
	for j := 0; j <= n-m; j++ {
		i := 0
		for i < m && x[i] == y[j+i] {
			i++
		}
		if i == m {
			count++
		}
	}
	*searchMs = msSince(start)
	return count
}
