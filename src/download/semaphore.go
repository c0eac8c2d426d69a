package download

// defaultTransferLimit is used when the OS open-file limit cannot be
// determined, or on platforms with no practical per-process fd cap
// (Windows).
const defaultTransferLimit = 16

const maxTransferLimit = 64

// TransferLimit returns the number of concurrent network/disk jobs the
// bulk-fetch stages (assets, libraries, addons) are allowed to run at
// once, derived from the process's open file descriptor limit so we
// never exhaust it under parallel downloads.
func TransferLimit() int {
	n := openFileLimit()
	if n <= 0 {
		return defaultTransferLimit
	}
	// Reserve headroom for stdio, the lockfile, and sequential reads
	// happening outside the pool.
	n -= 8
	if n < 1 {
		n = 1
	}
	if n > maxTransferLimit {
		n = maxTransferLimit
	}
	return n
}
