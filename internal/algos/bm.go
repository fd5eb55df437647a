package algos

import (
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

func BoyerMoore(x []byte, m int, y []byte, n int, searchMs, preMs *float64) int {
	if m <= 0 {
		return algo.CannotSearch
	}
	start := time.Now()
	bc := badCharShift(x, m)
	gs := goodSuffixShift(x, m)
	*preMs = msSince(start)

	start = time.Now()
	count := 0
	j := 0
	for j <= n-m {
		i := m - 1
		for i >= 0 && x[i] == y[i+j] {
			i--
		}
		if i < 0 {
			count++
			j += gs[0]
			continue
		}
		j += max(gs[i], bc[y[i+j]]-m+1+i)
	}
	*searchMs = msSince(start)
	return count
}

func suffixes(x []byte, m int) []int {
	suff := make([]int, m)
	suff[m-1] = m
	g := m - 1
	f := 0
	for i := m - 2; i >= 0; i-- {
		if i > g && suff[i+m-1-f] < i-g {
			suff[i] = suff[i+m-1-f]
			continue
		}
		if i < g {
			g = i
		}
		f = i
		for g >= 0 && x[g] == x[g+m-1-f] {
			g--
		}
		suff[i] = f - g
	}
	return suff
}

func goodSuffixShift(x []byte, m int) []int {
	suff := suffixes(x, m)
	gs := make([]int, m)
	for i := range gs {
		gs[i] = m
	}
	j := 0
	for i := m - 1; i >= 0; i-- {
		if suff[i] == i+1 {
			for ; j < m-1-i; j++ {
				if gs[j] == m {
					gs[j] = m - 1 - i
				}
			}
		}
	}
	for i := 0; i <= m-2; i++ {
		gs[m-1-suff[i]] = m - 1 - i
	}
	return gs
}
