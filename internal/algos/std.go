package algos

import (
	"bytes"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

// StdIndex repeatedly calls bytes.Index, restarting one byte past each match.
func StdIndex(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	*preMs = 0
	start := time.Now()
	count := 0
	for j := 0; j <= n-m; {
		k := bytes.Index(y[j:n], x[:m])
		if k < 0 {
			break
		}
		count++
		j += k + 1
	}
	*searchMs = msSince(start)
	return count
}
