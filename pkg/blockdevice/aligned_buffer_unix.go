//go:build darwin || freebsd || linux

package blockdevice

import (
	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AlignedBuffer is a fixed size byte buffer whose start address is
// aligned to the system page size. Page alignment satisfies the
// alignment requirements of every logical and physical block size
// supported by Linux, meaning the buffer can be used for I/O against
// devices opened with O_DIRECT.
//
// The buffer is allocated through an anonymous memory map, so that
// it lives outside of the Go heap and is never moved.
type AlignedBuffer struct {
	data []byte
}

// NewAlignedBuffer allocates a page aligned buffer of a given size.
func NewAlignedBuffer(sizeBytes int) (*AlignedBuffer, error) {
	if sizeBytes <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid buffer size of %d bytes", sizeBytes)
	}
	data, err := unix.Mmap(-1, 0, sizeBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.ResourceExhausted, "No memory for I/O buffer (%d B)", sizeBytes)
	}
	return &AlignedBuffer{data: data}, nil
}

// Bytes returns the contents of the buffer. The slice remains valid
// until Close() is called.
func (b *AlignedBuffer) Bytes() []byte {
	return b.data
}

// Fill overwrites every byte of the buffer with the same value.
func (b *AlignedBuffer) Fill(pattern byte) {
	for i := range b.data {
		b.data[i] = pattern
	}
}

// Close releases the memory backing the buffer.
func (b *AlignedBuffer) Close() error {
	if err := unix.Munmap(b.data); err != nil {
		return util.StatusWrap(err, "Failed to unmap I/O buffer")
	}
	b.data = nil
	return nil
}
