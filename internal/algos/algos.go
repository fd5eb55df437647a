// Package algos holds the search kernels compiled into the binary. Each one
// follows the unit ABI, counts overlapping occurrences in text[:n] and times
// its preprocessing and search phases separately.
package algos

import (
	"sort"
	"time"

	"github.com/programme-lv/strbench/internal/algo"
)

var builtins = map[string]algo.RawSearchFunc{
	"bf":  BruteForce,
	"bm":  BoyerMoore,
	"hor": Horspool,
	"kmp": KnuthMorrisPratt,
	"rb":  RareByte,
	"so":  ShiftOr,
	"std": StdIndex,
}

// Lookup returns the built-in kernel registered under name.
func Lookup(name string) (algo.RawSearchFunc, bool) {
	fn, ok := builtins[algo.Canonical(name)]
	return fn, ok
}

// Names lists the built-in kernels in name order.
func Names() []string {
	res := make([]string, 0, len(builtins))
	for name := range builtins {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Nanoseconds()) / 1e6
}
