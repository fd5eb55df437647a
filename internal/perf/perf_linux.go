//go:build linux

package perf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type event struct {
	fd  int
	dst func(*Sample) *uint64
}

type threadCounters struct {
	events []event
}

func cacheConfig(cache, op, result uint64) uint64 {
	return cache | op<<8 | result<<16
}

// Open opens the selected counters for the calling OS thread. The caller
// must hold runtime.LockOSThread for as long as the counters are used.
func Open(sel Selection) (Counters, error) {
	if sel == None {
		return Noop(), nil
	}
	type spec struct {
		typ    uint32
		config uint64
		dst    func(*Sample) *uint64
	}
	var specs []spec
	if sel.Has(Cache) {
		specs = append(specs,
			spec{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES, func(s *Sample) *uint64 { return &s.CacheRefs }},
			spec{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES, func(s *Sample) *uint64 { return &s.CacheMisses }},
		)
	}
	if sel.Has(L1) {
		specs = append(specs,
			spec{unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_ACCESS), func(s *Sample) *uint64 { return &s.L1Refs }},
			spec{unix.PERF_TYPE_HW_CACHE, cacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS), func(s *Sample) *uint64 { return &s.L1Misses }},
		)
	}
	if sel.Has(Branch) {
		specs = append(specs,
			spec{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS, func(s *Sample) *uint64 { return &s.BranchInstructions }},
			spec{unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES, func(s *Sample) *uint64 { return &s.BranchMisses }},
		)
	}

	tc := &threadCounters{}
	for _, sp := range specs {
		attr := unix.PerfEventAttr{
			Type:   sp.typ,
			Config: sp.config,
			Bits:   unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		}
		attr.Size = uint32(unsafe.Sizeof(attr))
		fd, err := unix.PerfEventOpen(&attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			tc.Close()
			if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EOPNOTSUPP) {
				return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
			}
			return nil, fmt.Errorf("failed to open perf event: %w", err)
		}
		tc.events = append(tc.events, event{fd: fd, dst: sp.dst})
	}
	return tc, nil
}

func (tc *threadCounters) Start() error {
	for _, e := range tc.events {
		if err := unix.IoctlSetInt(e.fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
			return fmt.Errorf("failed to reset perf event: %w", err)
		}
	}
	for _, e := range tc.events {
		if err := unix.IoctlSetInt(e.fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
			return fmt.Errorf("failed to enable perf event: %w", err)
		}
	}
	return nil
}

func (tc *threadCounters) Stop() (Sample, error) {
	for _, e := range tc.events {
		_ = unix.IoctlSetInt(e.fd, unix.PERF_EVENT_IOC_DISABLE, 0)
	}
	var s Sample
	var buf [8]byte
	for _, e := range tc.events {
		n, err := unix.Read(e.fd, buf[:])
		if err != nil {
			return s, fmt.Errorf("failed to read perf event: %w", err)
		}
		if n != len(buf) {
			return s, fmt.Errorf("short perf event read: %d bytes", n)
		}
		*e.dst(&s) = binary.NativeEndian.Uint64(buf[:])
	}
	return s, nil
}

func (tc *threadCounters) Close() error {
	var errs []error
	for _, e := range tc.events {
		if err := unix.Close(e.fd); err != nil {
			errs = append(errs, err)
		}
	}
	tc.events = nil
	return errors.Join(errs...)
}
