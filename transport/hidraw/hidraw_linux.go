//go:build linux

package hidraw

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hidIocGRawInfo is HIDIOCGRAWINFO from <linux/hidraw.h>: _IOR('H', 0x03, struct hidraw_devinfo).
const hidIocGRawInfo = 0x80084803

// rawDevInfo mirrors struct hidraw_devinfo.
type rawDevInfo struct {
	BusType uint32
	Vendor  int16
	Product int16
}

// deviceInfo ioctl's fd for its bus type and USB vendor/product IDs.
func deviceInfo(fd uintptr) (vendor, product uint16, err error) {
	var info rawDevInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, hidIocGRawInfo, uintptr(unsafe.Pointer(&info))); errno != 0 {
		return 0, 0, errno
	}
	return uint16(info.Vendor), uint16(info.Product), nil
}

// Open opens a hidraw device node for exclusive-ish blocking reads.
func Open(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// FindDevice scans /dev/hidraw* for the first node reporting the given USB
// vendor/product ID pair, as Valve's Steam Controller and Steam Deck
// present themselves.
func FindDevice(vendorID, productID uint16) (string, error) {
	matches, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return "", fmt.Errorf("hidraw: glob device nodes: %w", err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		vid, pid, err := deviceInfo(f.Fd())
		_ = f.Close()
		if err != nil {
			continue
		}
		if vid == vendorID && pid == productID {
			return path, nil
		}
	}
	return "", fmt.Errorf("hidraw: no device found for vid=%#04x pid=%#04x", vendorID, productID)
}
