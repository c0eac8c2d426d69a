package pkgeval

import "runtime"

func hostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	default:
		return runtime.GOOS
	}
}

func hostArch() string {
	return runtime.GOARCH
}
