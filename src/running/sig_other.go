//go:build !linux && !darwin

package running

import "os"

var syscallSig0 os.Signal = os.Interrupt
