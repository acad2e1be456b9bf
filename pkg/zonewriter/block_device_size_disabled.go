//go:build !linux

package zonewriter

import (
	"io"
	"os"

	"github.com/buildbarn/bb-zone-writer/pkg/util"
)

// getBlockDeviceSize determines the size of a block device by seeking
// to its end, as the ioctl for obtaining it differs between operating
// systems.
func getBlockDeviceSize(f *os.File) (int64, error) {
	sizeBytes, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, util.StatusFromErrno(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, util.StatusFromErrno(err)
	}
	return sizeBytes, nil
}
