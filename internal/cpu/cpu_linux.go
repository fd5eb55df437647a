//go:build linux

package cpu

import "golang.org/x/sys/unix"

// Allowed lists the cores the process may run on, ascending.
func Allowed() ([]int, error) {
	return ThreadAffinity(0)
}

// ThreadAffinity lists the cores thread tid may run on; tid 0 is the
// calling thread.
func ThreadAffinity(tid int) ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(tid, &set); err != nil {
		return nil, err
	}
	var res []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			res = append(res, i)
		}
	}
	return res, nil
}

// ThreadID is the kernel id of the calling thread.
func ThreadID() int { return unix.Gettid() }

func pinThread(core int) error {
	// tid 0 is the calling thread
	return setThreadAffinity(0, []int{core})
}

func setThreadAffinity(tid int, cores []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	return unix.SchedSetaffinity(tid, &set)
}
