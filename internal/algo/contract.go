package algo

import (
	"context"
	"fmt"
)

// Raw return values reserved by the unit ABI.
const (
	CannotSearch = -1
	SearchError  = -2
)

// RawSearchFunc is the entry point every algorithm unit exposes.
// text may be longer than n; bytes past n are padding the unit may overwrite.
type RawSearchFunc func(pattern []byte, m int, text []byte, n int, searchMs, preMs *float64) int

type Kind int

const (
	Matched Kind = iota
	Unsupported
	Fault
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Unsupported:
		return "unsupported"
	case Fault:
		return "fault"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is the tagged outcome of one search invocation.
// Count is meaningful only when Kind is Matched.
type Result struct {
	Kind  Kind
	Count int
}

func MatchedResult(count int) Result { return Result{Kind: Matched, Count: count} }

func (r Result) String() string {
	if r.Kind == Matched {
		return fmt.Sprintf("matched(%d)", r.Count)
	}
	return r.Kind.String()
}

// FromRaw translates a raw unit return value. No code past the call
// boundary should look at raw sentinels.
func FromRaw(ret int) Result {
	switch {
	case ret == CannotSearch:
		return Result{Kind: Unsupported}
	case ret < 0:
		return Result{Kind: Fault}
	default:
		return MatchedResult(ret)
	}
}

// Timing holds the times a unit reports for one invocation, in milliseconds.
type Timing struct {
	SearchMs float64
	PreMs    float64
}

func (t Timing) TotalMs() float64 { return t.SearchMs + t.PreMs }

// Searcher is the capability the driver and the harness consume.
type Searcher interface {
	Search(ctx context.Context, pattern []byte, text []byte, n int) (Result, Timing)
}

// Unit is a loaded algorithm backing a descriptor.
type Unit interface {
	Searcher
	Close() error
}

type nativeUnit struct {
	fn RawSearchFunc
}

// Native adapts a raw entry point into a Unit.
func Native(fn RawSearchFunc) Unit {
	return &nativeUnit{fn: fn}
}

func (u *nativeUnit) Search(_ context.Context, pattern []byte, text []byte, n int) (Result, Timing) {
	var t Timing
	ret := u.fn(pattern, len(pattern), text, n, &t.SearchMs, &t.PreMs)
	return FromRaw(ret), t
}

func (u *nativeUnit) Close() error { return nil }
