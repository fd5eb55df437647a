package algo

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const MaxAlgorithms = 512

var ErrCapacity = errors.New("too many algorithms")

// Set is an ordered collection of algorithms with unique names.
type Set struct {
	items []*Algorithm
	names mapset.Set[string]
}

func NewSet() *Set {
	return &Set{names: mapset.NewThreadUnsafeSet[string]()}
}

// SetOf builds a set from names, in order.
func SetOf(names ...string) (*Set, error) {
	s := NewSet()
	for _, n := range names {
		if _, err := s.AddName(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Len() int { return len(s.items) }

func (s *Set) All() []*Algorithm { return s.items }

func (s *Set) Contains(name string) bool {
	return s.names.Contains(Canonical(name))
}

func (s *Set) Get(name string) *Algorithm {
	name = Canonical(name)
	for _, a := range s.items {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (s *Set) Names() []string {
	res := make([]string, 0, len(s.items))
	for _, a := range s.items {
		res = append(res, a.Name)
	}
	return res
}

// Add inserts a descriptor unless its name is already present.
func (s *Set) Add(a *Algorithm) (bool, error) {
	if s.names.Contains(a.Name) {
		return false, nil
	}
	if len(s.items) >= MaxAlgorithms {
		return false, fmt.Errorf("%w: cannot add %q, limit is %d", ErrCapacity, a.Name, MaxAlgorithms)
	}
	s.items = append(s.items, a)
	s.names.Add(a.Name)
	return true, nil
}

func (s *Set) AddName(name string) (bool, error) {
	a, err := NewAlgorithm(name)
	if err != nil {
		return false, err
	}
	return s.Add(a)
}

// Merge adds every algorithm of from that s lacks and returns the added names.
func (s *Set) Merge(from *Set) ([]string, error) {
	var added []string
	for _, a := range from.items {
		ok, err := s.Add(a)
		if err != nil {
			return added, err
		}
		if ok {
			added = append(added, a.Name)
		}
	}
	return added, nil
}

// Remove drops the named algorithm and reports whether it was present.
func (s *Set) Remove(name string) bool {
	name = Canonical(name)
	if !s.names.Contains(name) {
		return false
	}
	for i, a := range s.items {
		if a.Name == name {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.names.Remove(name)
	return true
}

// SortByName orders the set by name. Descriptors carry their own entry
// points, so sorting a loaded set is safe.
func (s *Set) SortByName() {
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Name < s.items[j].Name
	})
}

// KeepMatching keeps only algorithms whose whole name matches one of the
// patterns and returns the removed ones.
func (s *Set) KeepMatching(patterns []string) (*Set, error) {
	return s.partition(patterns, true)
}

// KeepNotMatching removes algorithms whose whole name matches one of the
// patterns and returns the removed ones.
func (s *Set) KeepNotMatching(patterns []string) (*Set, error) {
	return s.partition(patterns, false)
}

func (s *Set) partition(patterns []string, keepMatches bool) (*Set, error) {
	res, err := compileAnchored(patterns)
	if err != nil {
		return nil, err
	}
	kept := make([]*Algorithm, 0, len(s.items))
	removed := NewSet()
	for _, a := range s.items {
		if matchesAny(res, a.Name) == keepMatches {
			kept = append(kept, a)
			continue
		}
		removed.items = append(removed.items, a)
		removed.names.Add(a.Name)
		s.names.Remove(a.Name)
	}
	s.items = kept
	return removed, nil
}

// compileAnchored compiles POSIX extended expressions matching whole names,
// ignoring case. Names are stored lowercase, so folding the expression is
// enough; ERE character class names are lowercase already.
func compileAnchored(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.CompilePOSIX("^(" + strings.ToLower(p) + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid algorithm filter %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func matchesAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Loaded returns the loaded, non-poisoned algorithms in set order.
func (s *Set) Loaded() []*Algorithm {
	res := make([]*Algorithm, 0, len(s.items))
	for _, a := range s.items {
		if a.Loaded() && !a.Poisoned() {
			res = append(res, a)
		}
	}
	return res
}
