package zbc

import (
	"fmt"
	"io"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ZoneModel describes how a device exposes its zones.
type ZoneModel uint8

const (
	// ZoneModelUnknown is used when the zone model of a device
	// could not be determined.
	ZoneModelUnknown ZoneModel = iota
	// ZoneModelHostManaged devices contain sequential write required
	// zones, possibly combined with conventional zones.
	ZoneModelHostManaged
	// ZoneModelHostAware devices contain sequential write preferred
	// zones, possibly combined with conventional zones.
	ZoneModelHostAware
	// ZoneModelDeviceManaged devices hide zones from the host.
	ZoneModelDeviceManaged
	// ZoneModelStandard devices are regular, non-zoned block
	// devices.
	ZoneModelStandard
)

func (m ZoneModel) String() string {
	switch m {
	case ZoneModelHostManaged:
		return "Host-managed"
	case ZoneModelHostAware:
		return "Host-aware"
	case ZoneModelDeviceManaged:
		return "Device-managed"
	case ZoneModelStandard:
		return "Standard"
	default:
		return "Unknown"
	}
}

// Zoned returns whether the host is exposed to zones of the device.
func (m ZoneModel) Zoned() bool {
	return m == ZoneModelHostManaged || m == ZoneModelHostAware
}

// NewZoneModelFromString converts the name of a zone model, as used by
// the Linux kernel ("host-managed", "host-aware", "none") or by
// configuration files, to a ZoneModel.
func NewZoneModelFromString(s string) (ZoneModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host-managed", "hm":
		return ZoneModelHostManaged, nil
	case "host-aware", "ha":
		return ZoneModelHostAware, nil
	case "device-managed", "dm":
		return ZoneModelDeviceManaged, nil
	case "none", "standard":
		return ZoneModelStandard, nil
	default:
		return ZoneModelUnknown, status.Errorf(codes.InvalidArgument, "Unknown zone model %#v", s)
	}
}

// DeviceInfo contains the geometry and identity of a zoned block
// device. It does not change while the device is opened.
type DeviceInfo struct {
	Vendor            string
	Model             ZoneModel
	LogicalBlockSize  uint32
	PhysicalBlockSize uint32
	// Total capacity of the device in sectors of SectorSize bytes.
	Sectors uint64
	// Maximum number of sequential write required zones that may be
	// open at once. Zero means there is no limit.
	MaximumOpenZones uint32
}

// Validate checks the invariants of the device geometry. Both block
// sizes must be powers of two, and logical blocks may not be larger
// than physical blocks.
func (di *DeviceInfo) Validate() error {
	for _, size := range []uint32{di.LogicalBlockSize, di.PhysicalBlockSize} {
		if size < SectorSize || size&(size-1) != 0 {
			return status.Errorf(codes.InvalidArgument, "Block size of %d bytes is not a power of two of at least %d bytes", size, SectorSize)
		}
	}
	if di.LogicalBlockSize > di.PhysicalBlockSize {
		return status.Errorf(codes.InvalidArgument, "Logical block size of %d bytes exceeds physical block size of %d bytes", di.LogicalBlockSize, di.PhysicalBlockSize)
	}
	return nil
}

// Print writes a human readable description of the device, in the
// same layout as the libzbc tools.
func (di *DeviceInfo) Print(w io.Writer) {
	vendor := di.Vendor
	if vendor == "" {
		vendor = "Unknown vendor"
	}
	fmt.Fprintf(w, "    Vendor ID: %s\n", vendor)
	fmt.Fprintf(w, "    %s zone model\n", di.Model)
	fmt.Fprintf(w,
		"    %d 512-bytes sectors\n    %d logical blocks of %d B\n    %d physical blocks of %d B\n",
		di.Sectors,
		di.Sectors*SectorSize/uint64(di.LogicalBlockSize), di.LogicalBlockSize,
		di.Sectors*SectorSize/uint64(di.PhysicalBlockSize), di.PhysicalBlockSize)
	fmt.Fprintf(w, "    %.03f GB capacity\n", float64(di.Sectors*SectorSize)/1e9)
	if di.Model == ZoneModelHostManaged {
		if di.MaximumOpenZones == 0 {
			fmt.Fprintf(w, "    Maximum number of open sequential write required zones: unlimited\n")
		} else {
			fmt.Fprintf(w, "    Maximum number of open sequential write required zones: %d\n", di.MaximumOpenZones)
		}
	}
}

// Device is a handle to an opened zoned block device. It provides the
// primitives needed to select a zone and write data into it.
//
// Implementations are not required to be safe for concurrent use.
type Device interface {
	// GetDeviceInfo returns the geometry of the device.
	GetDeviceInfo() DeviceInfo

	// ListZones returns the zones of the device that match the
	// reporting options, starting with the zone that contains
	// startSector. Zones are ordered by start sector.
	ListZones(startSector uint64, options ReportingOptions) ([]Zone, error)

	// WriteSectors issues a single positioned write of sectorCount
	// sectors, taken from the start of p, at sector sectorOffset.
	// It returns the number of sectors actually written, which may
	// be less than requested. Short writes are never retried, as
	// the device's write pointer is the source of truth.
	//
	// Failures are reported as a unix.Errno.
	WriteSectors(p []byte, sectorCount, sectorOffset uint64) (uint64, error)

	// Close releases all resources associated with the device.
	Close() error
}
