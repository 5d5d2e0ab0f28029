//go:build !linux

package hidraw

import (
	"fmt"
	"os"
	"runtime"
)

// Open is unsupported outside Linux; hidraw device nodes are a Linux
// kernel interface. Other platforms would need a distinct HID backend
// (e.g. hidapi via cgo), which is out of scope here.
func Open(path string) (*os.File, error) {
	return nil, fmt.Errorf("hidraw: device access is not supported on %s", runtime.GOOS)
}

// FindDevice is unsupported outside Linux; see Open.
func FindDevice(vendorID, productID uint16) (string, error) {
	return "", fmt.Errorf("hidraw: device enumeration is not supported on %s", runtime.GOOS)
}
