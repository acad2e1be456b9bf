//go:build darwin || freebsd || linux

package blockdevice

import (
	"io"

	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fileBackedBlockDevice struct {
	fd        int
	sizeBytes int64
}

// newFileBackedBlockDevice creates a BlockDevice from a file descriptor
// referring either to a regular file or UNIX device node. Reads and
// writes are translated to pread() and pwrite() calls, which keeps
// the page cache footprint of large emulated devices small.
func newFileBackedBlockDevice(fd int, sizeBytes int64) BlockDevice {
	return &fileBackedBlockDevice{
		fd:        fd,
		sizeBytes: sizeBytes,
	}
}

func (bd *fileBackedBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, unix.EINVAL
	}
	if off >= bd.sizeBytes {
		return 0, io.EOF
	}
	truncated := false
	if remaining := bd.sizeBytes - off; int64(len(p)) > remaining {
		p = p[:remaining]
		truncated = true
	}
	nTotal := 0
	for len(p) > 0 {
		n, err := unix.Pread(bd.fd, p, off)
		if err != nil {
			return nTotal, err
		}
		if n == 0 {
			return nTotal, io.ErrUnexpectedEOF
		}
		nTotal += n
		p = p[n:]
		off += int64(n)
	}
	if truncated {
		return nTotal, io.EOF
	}
	return nTotal, nil
}

func (bd *fileBackedBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > bd.sizeBytes {
		return 0, status.Errorf(codes.InvalidArgument, "Write of %d bytes at offset %d exceeds the size of the block device, which is %d bytes", len(p), off, bd.sizeBytes)
	}

	// The pwrite() system call cannot return a size and error at
	// the same time. If an error occurs after one or more bytes are
	// written, it returns the size without an error (a "short
	// write"). As WriteAt() must return an error in those cases, we
	// must invoke pwrite() repeatedly.
	nTotal := 0
	for len(p) > 0 {
		n, err := unix.Pwrite(bd.fd, p, off)
		nTotal += n
		if err != nil {
			return nTotal, err
		}
		p = p[n:]
		off += int64(n)
	}
	return nTotal, nil
}

func (bd *fileBackedBlockDevice) Sync() error {
	return unix.Fsync(bd.fd)
}

func (bd *fileBackedBlockDevice) Close() error {
	if err := unix.Close(bd.fd); err != nil {
		return util.StatusWrap(err, "Failed to close file descriptor")
	}
	return nil
}
