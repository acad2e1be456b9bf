//go:build linux

package zonewriter

import (
	"os"
	"unsafe"

	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
)

func getBlockDeviceSize(f *os.File) (int64, error) {
	var sizeBytes uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&sizeBytes))); errno != 0 {
		return 0, util.StatusFromErrno(errno)
	}
	return int64(sizeBytes), nil
}
