package algo

import (
	"errors"
	"fmt"
	"strings"
)

const MaxNameLen = 64

var ErrNameTooLong = errors.New("algorithm name too long")

// Algorithm describes one algorithm unit. The unit is non-nil iff the
// descriptor is loaded.
type Algorithm struct {
	Name   string
	Hash   string
	Path   string
	Tested bool

	unit     Unit
	poisoned bool
}

func NewAlgorithm(name string) (*Algorithm, error) {
	name = Canonical(name)
	if name == "" {
		return nil, fmt.Errorf("empty algorithm name")
	}
	if len(name) > MaxNameLen {
		return nil, fmt.Errorf("%w: %q (max %d)", ErrNameTooLong, name, MaxNameLen)
	}
	return &Algorithm{Name: name}, nil
}

// Canonical returns the lookup form of an algorithm name.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (a *Algorithm) Loaded() bool { return a.unit != nil }

// Attach marks the descriptor loaded.
func (a *Algorithm) Attach(u Unit, path, hash string) {
	a.unit = u
	a.Path = path
	a.Hash = hash
	a.poisoned = false
}

// Detach closes the unit (if any) and marks the descriptor unloaded.
func (a *Algorithm) Detach() error {
	if a.unit == nil {
		return nil
	}
	err := a.unit.Close()
	a.unit = nil
	return err
}

// Searcher returns the loaded entry point, or nil when unloaded.
func (a *Algorithm) Searcher() Searcher {
	if a.unit == nil {
		return nil
	}
	return a.unit
}

// Poison marks a loaded unit as unusable for the rest of the session,
// e.g. after its worker had to be abandoned.
func (a *Algorithm) Poison() { a.poisoned = true }

func (a *Algorithm) Poisoned() bool { return a.poisoned }

// DisplayName is uppercase for verified algorithms and
// lowercase with a leading marker otherwise.
func (a *Algorithm) DisplayName() string {
	if a.Tested {
		return strings.ToUpper(a.Name)
	}
	return "*" + a.Name
}

// RecordKey is the name form stored in the test record file.
func (a *Algorithm) RecordKey() string {
	return strings.ToUpper(a.Name)
}
