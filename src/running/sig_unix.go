//go:build linux || darwin

package running

import "syscall"

var syscallSig0 = syscall.Signal(0)
