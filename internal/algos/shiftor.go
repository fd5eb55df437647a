package algos

import (
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

const shiftOrMaxLen = 64

// ShiftOr keeps one state bit per pattern position, so it declines
// patterns longer than a machine word.
func ShiftOr(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 || m > shiftOrMaxLen {
		return algo.CannotSearch
	}
	start := time.Now()
	var masks [256]uint64
	for i := range masks {
		masks[i] = ^uint64(0)
	}
	for i := 0; i < m; i++ {
		masks[x[i]] &^= 1 << uint(i)
	}
	hit := uint64(1) << uint(m-1)
	*preMs = msSince(start)

	start = time.Now()
	count := 0
	state := ^uint64(0)
	for j := 0; j < n; j++ {
		state = (state << 1) | masks[y[j]]
		if state&hit == 0 {
			count++
		}
	}
	*searchMs = msSince(start)
	return count
}
