//go:build !linux

package perf

func Open(sel Selection) (Counters, error) {
	if sel == None {
		return Noop(), nil
	}
	return nil, ErrUnsupported
}
