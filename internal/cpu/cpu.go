// Package cpu pins the calling OS thread to a single core.
package cpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnsupported = errors.New("cpu pinning is not supported on this platform")
	ErrNoSpareCPU  = errors.New("no other cpu to move the thread to")
)

type Mode int

const (
	Off Mode = iota
	Last
	Core
)

// Pin selects the core measurements run on.
type Pin struct {
	Mode Mode
	Core int
}

func (p Pin) String() string {
	switch p.Mode {
	case Off:
		return "off"
	case Last:
		return "last"
	}
	return strconv.Itoa(p.Core)
}

// ParsePin accepts "off", "last" or a core index.
func ParsePin(s string) (Pin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "no", "none":
		return Pin{Mode: Off}, nil
	case "last":
		return Pin{Mode: Last}, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return Pin{}, fmt.Errorf("invalid pin %q: want off, last or a core index", s)
	}
	return Pin{Mode: Core, Core: n}, nil
}

// Resolve returns the core index to pin to among the allowed cores,
// or -1 when pinning is off.
func (p Pin) Resolve(allowed []int) (int, error) {
	switch p.Mode {
	case Off:
		return -1, nil
	case Last:
		if len(allowed) == 0 {
			return -1, fmt.Errorf("no cpus available")
		}
		return allowed[len(allowed)-1], nil
	}
	for _, c := range allowed {
		if c == p.Core {
			return c, nil
		}
	}
	return -1, fmt.Errorf("cpu %d is not available (allowed %v)", p.Core, allowed)
}

// Apply pins the current OS thread according to p and returns the core used,
// or -1 when pinning is off. The caller must hold runtime.LockOSThread.
func (p Pin) Apply() (int, error) {
	if p.Mode == Off {
		return -1, nil
	}
	allowed, err := Allowed()
	if err != nil {
		return -1, err
	}
	core, err := p.Resolve(allowed)
	if err != nil {
		return -1, err
	}
	if err := pinThread(core); err != nil {
		return -1, fmt.Errorf("failed to pin thread to cpu %d: %w", core, err)
	}
	return core, nil
}

// Spare returns allowed without core.
func Spare(allowed []int, core int) []int {
	res := make([]int, 0, len(allowed))
	for _, c := range allowed {
		if c != core {
			res = append(res, c)
		}
	}
	return res
}

// MoveOff restricts thread tid to the allowed cores other than core.
func MoveOff(tid, core int) error {
	allowed, err := Allowed()
	if err != nil {
		return err
	}
	spare := Spare(allowed, core)
	if len(spare) == 0 {
		return ErrNoSpareCPU
	}
	if err := setThreadAffinity(tid, spare); err != nil {
		return fmt.Errorf("failed to move thread %d off cpu %d: %w", tid, core, err)
	}
	return nil
}
