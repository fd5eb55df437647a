// Package perf reads hardware performance counters of the calling thread.
package perf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnsupported = errors.New("hardware counters are not supported on this platform")

// Selection is a bitmask of counter groups.
type Selection uint8

const (
	L1 Selection = 1 << iota
	Cache
	Branch

	None Selection = 0
	All            = L1 | Cache | Branch
)

func (s Selection) Has(g Selection) bool { return s&g != 0 }

func (s Selection) String() string {
	if s == None {
		return "none"
	}
	var parts []string
	if s.Has(L1) {
		parts = append(parts, "l1")
	}
	if s.Has(Cache) {
		parts = append(parts, "cache")
	}
	if s.Has(Branch) {
		parts = append(parts, "branch")
	}
	return strings.Join(parts, ",")
}

// ParseSelection accepts a comma separated list of group names or the
// numeric bitmask.
func ParseSelection(s string) (Selection, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" || s == "off" {
		return None, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || Selection(n)&^All != 0 {
			return None, fmt.Errorf("invalid counter mask %d", n)
		}
		return Selection(n), nil
	}
	var sel Selection
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "l1":
			sel |= L1
		case "cache":
			sel |= Cache
		case "branch":
			sel |= Branch
		case "all":
			sel |= All
		default:
			return None, fmt.Errorf("unknown counter group %q", part)
		}
	}
	return sel, nil
}

// Sample holds counter deltas of one measured interval.
type Sample struct {
	CacheRefs          uint64 `json:"cache_refs"`
	CacheMisses        uint64 `json:"cache_misses"`
	L1Refs             uint64 `json:"l1_refs"`
	L1Misses           uint64 `json:"l1_misses"`
	BranchInstructions uint64 `json:"branch_instructions"`
	BranchMisses       uint64 `json:"branch_misses"`
}

func (s *Sample) Add(o Sample) {
	s.CacheRefs += o.CacheRefs
	s.CacheMisses += o.CacheMisses
	s.L1Refs += o.L1Refs
	s.L1Misses += o.L1Misses
	s.BranchInstructions += o.BranchInstructions
	s.BranchMisses += o.BranchMisses
}

// Counters measures the thread that opened it.
type Counters interface {
	Start() error
	Stop() (Sample, error)
	Close() error
}

type noop struct{}

// Noop returns counters that always read zero.
func Noop() Counters { return noop{} }

func (noop) Start() error          { return nil }
func (noop) Stop() (Sample, error) { return Sample{}, nil }
func (noop) Close() error          { return nil }
