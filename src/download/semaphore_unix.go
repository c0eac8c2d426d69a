//go:build linux || darwin

package download

import "syscall"

func openFileLimit() int {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return 0
	}
	return int(rlimit.Cur)
}
