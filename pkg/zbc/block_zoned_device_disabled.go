//go:build !linux

package zbc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewDeviceFromPath opens a zoned block device. This implementation is
// a stub for operating systems that don't provide a zoned block device
// interface. Use an emulated device instead.
func NewDeviceFromPath(path string, direct bool) (Device, error) {
	return nil, status.Error(codes.Unimplemented, "Zoned block devices are only supported on Linux")
}
