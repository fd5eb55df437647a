//go:build !linux

package cpu

func Allowed() ([]int, error) { return nil, ErrUnsupported }

func ThreadAffinity(int) ([]int, error) { return nil, ErrUnsupported }

func ThreadID() int { return -1 }

func pinThread(int) error { return ErrUnsupported }

func setThreadAffinity(int, []int) error { return ErrUnsupported }
