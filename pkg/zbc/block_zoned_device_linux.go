//go:build linux

package zbc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Number of zones requested per BLKREPORTZONE call.
const zonesPerReport = 4096

type blockZonedDevice struct {
	fd          int
	info        DeviceInfo
	reportCache zoneReportBuffer
}

// NewDeviceFromPath opens a zoned block device through the Linux
// kernel's zoned block device interface. Zone information is obtained
// using the BLKREPORTZONE ioctl, while writes are performed using
// pwrite().
//
// Opening a device that is not zoned fails with FAILED_PRECONDITION.
// When direct is set, the page cache is bypassed by opening the device
// with O_DIRECT, requiring buffers to be aligned to the logical block
// size.
func NewDeviceFromPath(path string, direct bool) (Device, error) {
	flags := unix.O_RDWR | unix.O_CLOEXEC
	if direct {
		flags |= unix.O_DIRECT
	}
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Failed to open device node %#v", path)
	}

	d, err := newBlockZonedDevice(fd, path)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

func newBlockZonedDevice(fd int, path string) (*blockZonedDevice, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Failed to obtain attributes of %#v", path)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFBLK {
		return nil, status.Errorf(codes.FailedPrecondition, "Open %s failed (not a zoned block device): Not a block device", path)
	}

	// Partitions don't have a queue directory of their own. Their
	// queue attributes are those of the parent device.
	sysfsPath := fmt.Sprintf("/sys/dev/block/%d:%d", unix.Major(uint64(stat.Rdev)), unix.Minor(uint64(stat.Rdev)))
	zoned, err := readSysfsAttribute(sysfsPath, "queue/zoned")
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to obtain zone model of %#v", path)
	}
	model, err := NewZoneModelFromString(zoned)
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to obtain zone model of %#v", path)
	}
	if !model.Zoned() {
		return nil, status.Errorf(codes.FailedPrecondition, "Open %s failed (not a zoned block device)", path)
	}

	var logicalBlockSize int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKSSZGET, uintptr(unsafe.Pointer(&logicalBlockSize))); errno != 0 {
		return nil, util.StatusWrapf(util.StatusFromErrno(errno), "Failed to obtain logical block size of %#v", path)
	}
	var physicalBlockSize uint32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKPBSZGET, uintptr(unsafe.Pointer(&physicalBlockSize))); errno != 0 {
		return nil, util.StatusWrapf(util.StatusFromErrno(errno), "Failed to obtain physical block size of %#v", path)
	}
	var deviceSizeBytes uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&deviceSizeBytes))); errno != 0 {
		return nil, util.StatusWrapf(util.StatusFromErrno(errno), "Failed to obtain size of %#v", path)
	}

	info := DeviceInfo{
		Vendor:            readVendor(sysfsPath),
		Model:             model,
		LogicalBlockSize:  uint32(logicalBlockSize),
		PhysicalBlockSize: physicalBlockSize,
		Sectors:           deviceSizeBytes >> SectorShift,
	}
	if maximumOpenZones, err := readSysfsAttribute(sysfsPath, "queue/max_open_zones"); err == nil {
		if v, err := strconv.ParseUint(maximumOpenZones, 10, 32); err == nil {
			info.MaximumOpenZones = uint32(v)
		}
	}
	if err := info.Validate(); err != nil {
		return nil, util.StatusWrapf(err, "Invalid geometry of %#v", path)
	}

	return &blockZonedDevice{
		fd:          fd,
		info:        info,
		reportCache: newZoneReportBuffer(zonesPerReport),
	}, nil
}

// readSysfsAttribute reads a queue attribute of a block device. For
// partitions, the attribute is read from the parent device.
func readSysfsAttribute(sysfsPath, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(sysfsPath, name))
	if os.IsNotExist(err) {
		// The parent must be determined after resolving the
		// symbolic link, as filepath.Join() is purely lexical.
		resolvedPath, resolveErr := filepath.EvalSymlinks(sysfsPath)
		if resolveErr != nil {
			return "", resolveErr
		}
		data, err = os.ReadFile(filepath.Join(filepath.Dir(resolvedPath), name))
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readVendor(sysfsPath string) string {
	var fields []string
	for _, name := range []string{"device/vendor", "device/model", "device/rev"} {
		if v, err := readSysfsAttribute(sysfsPath, name); err == nil && v != "" {
			fields = append(fields, v)
		}
	}
	return strings.Join(fields, " ")
}

func (d *blockZonedDevice) GetDeviceInfo() DeviceInfo {
	return d.info
}

func (d *blockZonedDevice) ListZones(startSector uint64, options ReportingOptions) ([]Zone, error) {
	// The kernel does not support reporting options. Obtain all
	// zones and filter them afterwards.
	var zones []Zone
	buffer := d.reportCache
	for sector := startSector; sector < d.info.Sectors; {
		buffer.prepare(sector)
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(blkReportZone), uintptr(buffer.pointer())); errno != 0 {
			return nil, util.StatusWrapf(util.StatusFromErrno(errno), "Failed to report zones starting at sector %d", sector)
		}
		reported := buffer.zones()
		if len(reported) == 0 {
			break
		}
		capacityValid := buffer.header().Flags&blkZoneRepCapacity != 0
		for i := range reported {
			zone := newZoneFromBlkZone(&reported[i], capacityValid)
			if options.Matches(&zone) {
				zones = append(zones, zone)
			}
		}
		last := &reported[len(reported)-1]
		sector = last.Start + last.Len
	}
	return zones, nil
}

func (d *blockZonedDevice) WriteSectors(p []byte, sectorCount, sectorOffset uint64) (uint64, error) {
	sizeBytes := sectorCount << SectorShift
	if sectorCount == 0 || uint64(len(p)) < sizeBytes {
		return 0, unix.EINVAL
	}
	n, err := unix.Pwrite(d.fd, p[:sizeBytes], int64(sectorOffset<<SectorShift))
	if err != nil {
		return 0, err
	}
	return uint64(n) >> SectorShift, nil
}

func (d *blockZonedDevice) Close() error {
	if err := unix.Close(d.fd); err != nil {
		return util.StatusWrap(util.StatusFromErrno(err), "Failed to close device")
	}
	return nil
}
