//go:build darwin || freebsd || linux

package blockdevice

import (
	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewBlockDeviceFromFile creates a BlockDevice that is backed by a
// regular file stored in a file system. The file is grown to hold
// sectorCount sectors of sectorSizeBytes each. Existing contents are
// preserved, unless zeroInitialize is set.
//
// This is used to emulate zoned block devices in environments where
// SMR disks (or the privileges needed to access those) aren't readily
// available.
func NewBlockDeviceFromFile(path string, sectorSizeBytes int, sectorCount int64, zeroInitialize bool) (BlockDevice, error) {
	if sectorSizeBytes <= 0 || sectorSizeBytes&(sectorSizeBytes-1) != 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Sector size of %d bytes is not a power of two", sectorSizeBytes)
	}
	if sectorCount <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Block device must contain at least one sector, not %d", sectorCount)
	}

	flags := unix.O_CREAT | unix.O_RDWR
	if zeroInitialize {
		flags |= unix.O_TRUNC
	}
	fd, err := unix.Open(path, flags, 0o666)
	if err != nil {
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Failed to open file %#v", path)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Failed to obtain size of file %#v", path)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFREG {
		unix.Close(fd)
		return nil, status.Errorf(codes.InvalidArgument, "Path %#v does not refer to a regular file", path)
	}

	sizeBytes := int64(sectorSizeBytes) * sectorCount
	if stat.Size != sizeBytes {
		if err := unix.Ftruncate(fd, sizeBytes); err != nil {
			unix.Close(fd)
			return nil, util.StatusWrapf(util.StatusFromErrno(err), "Failed to truncate file %#v to %d bytes", path, sizeBytes)
		}
	}
	return newFileBackedBlockDevice(fd, sizeBytes), nil
}
