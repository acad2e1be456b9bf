package zbc

import (
	"log"
	"sync"

	"github.com/buildbarn/bb-zone-writer/pkg/blockdevice"
	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EmulatedGeometry describes the layout of an emulated zoned device.
type EmulatedGeometry struct {
	Model             ZoneModel
	LogicalBlockSize  uint32
	PhysicalBlockSize uint32

	ZoneCount           uint64
	ConventionalZones   uint64
	ZoneSizeSectors     uint64
	ZoneCapacitySectors uint64
}

// Validate checks whether an emulated device can be created with the
// given geometry.
func (g *EmulatedGeometry) Validate() error {
	if !g.Model.Zoned() {
		return status.Errorf(codes.InvalidArgument, "Emulated devices must be host-managed or host-aware, not %s", g.Model)
	}
	info := DeviceInfo{
		LogicalBlockSize:  g.LogicalBlockSize,
		PhysicalBlockSize: g.PhysicalBlockSize,
	}
	if err := info.Validate(); err != nil {
		return err
	}
	if g.ZoneCount == 0 {
		return status.Error(codes.InvalidArgument, "Emulated devices must have at least one zone")
	}
	if g.ConventionalZones > g.ZoneCount {
		return status.Errorf(codes.InvalidArgument, "Number of conventional zones (%d) exceeds the total number of zones (%d)", g.ConventionalZones, g.ZoneCount)
	}
	if g.ZoneSizeSectors == 0 || (g.ZoneSizeSectors<<SectorShift)%uint64(g.PhysicalBlockSize) != 0 {
		return status.Errorf(codes.InvalidArgument, "Zone size of %d sectors is not a multiple of the physical block size", g.ZoneSizeSectors)
	}
	if g.ZoneCapacitySectors > g.ZoneSizeSectors || (g.ZoneCapacitySectors<<SectorShift)%uint64(g.PhysicalBlockSize) != 0 {
		return status.Errorf(codes.InvalidArgument, "Zone capacity of %d sectors is not a multiple of the physical block size within the zone size", g.ZoneCapacitySectors)
	}
	return nil
}

func (g *EmulatedGeometry) newZones() []Zone {
	capacity := g.ZoneCapacitySectors
	if capacity == 0 {
		capacity = g.ZoneSizeSectors
	}
	sequentialType := ZoneTypeSequentialWriteRequired
	if g.Model == ZoneModelHostAware {
		sequentialType = ZoneTypeSequentialWritePreferred
	}

	zones := make([]Zone, 0, g.ZoneCount)
	for i := uint64(0); i < g.ZoneCount; i++ {
		start := i * g.ZoneSizeSectors
		if i < g.ConventionalZones {
			zones = append(zones, Zone{
				Start:        start,
				Length:       g.ZoneSizeSectors,
				Capacity:     g.ZoneSizeSectors,
				WritePointer: ^uint64(0),
				Type:         ZoneTypeConventional,
				Condition:    ZoneConditionNotWritePointer,
			})
		} else {
			zones = append(zones, Zone{
				Start:        start,
				Length:       g.ZoneSizeSectors,
				Capacity:     capacity,
				WritePointer: start,
				Type:         sequentialType,
				Condition:    ZoneConditionEmpty,
			})
		}
	}
	return zones
}

type emulatedDevice struct {
	blockDevice   blockdevice.BlockDevice
	metadataStore ZoneMetadataStore
	geometry      EmulatedGeometry

	lock  sync.Mutex
	zones []Zone
	dirty bool
}

// NewEmulatedDevice creates a zoned device on top of a BlockDevice,
// similar to the emulation layer provided by libzbc. Zone state is
// kept in memory and written to a ZoneMetadataStore when the device is
// closed.
//
// The emulated device enforces the same write constraints as real
// hardware. Writes must be aligned to logical blocks and may not cross
// zone boundaries. Sequential write required zones only accept writes
// at their write pointer, and writes into full zones fail with EIO.
func NewEmulatedDevice(blockDevice blockdevice.BlockDevice, metadataStore ZoneMetadataStore, geometry EmulatedGeometry) (Device, error) {
	if err := geometry.Validate(); err != nil {
		return nil, util.StatusWrap(err, "Invalid emulated device geometry")
	}

	zones, err := metadataStore.ReadZones()
	if err != nil {
		return nil, err
	}
	expectedZones := geometry.newZones()
	if len(zones) == 0 {
		zones = expectedZones
	} else if len(zones) != len(expectedZones) {
		return nil, status.Errorf(codes.FailedPrecondition, "Zone metadata contains %d zones, while the device geometry has %d zones", len(zones), len(expectedZones))
	} else {
		for i := range zones {
			if zones[i].Start != expectedZones[i].Start || zones[i].Length != expectedZones[i].Length || zones[i].Type != expectedZones[i].Type {
				return nil, status.Errorf(codes.FailedPrecondition, "Zone metadata of zone %d does not match the device geometry", i)
			}
		}
	}

	return &emulatedDevice{
		blockDevice:   blockDevice,
		metadataStore: metadataStore,
		geometry:      geometry,
		zones:         zones,
	}, nil
}

func (d *emulatedDevice) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Vendor:            "Emulated zoned device",
		Model:             d.geometry.Model,
		LogicalBlockSize:  d.geometry.LogicalBlockSize,
		PhysicalBlockSize: d.geometry.PhysicalBlockSize,
		Sectors:           d.geometry.ZoneCount * d.geometry.ZoneSizeSectors,
	}
}

func (d *emulatedDevice) ListZones(startSector uint64, options ReportingOptions) ([]Zone, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return FilterZones(d.zones, startSector, options), nil
}

func (d *emulatedDevice) WriteSectors(p []byte, sectorCount, sectorOffset uint64) (uint64, error) {
	sizeBytes := sectorCount << SectorShift
	logicalBlockSectors := uint64(d.geometry.LogicalBlockSize) >> SectorShift
	if sectorCount == 0 || uint64(len(p)) < sizeBytes || sectorOffset%logicalBlockSectors != 0 || sectorCount%logicalBlockSectors != 0 {
		return 0, unix.EINVAL
	}
	zoneIndex := sectorOffset / d.geometry.ZoneSizeSectors
	if zoneIndex >= uint64(len(d.zones)) {
		return 0, unix.EINVAL
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	zone := &d.zones[zoneIndex]
	if sectorOffset+sectorCount > zone.Start+zone.Length {
		return 0, unix.EINVAL
	}
	if zone.Sequential() {
		switch zone.Condition {
		case ZoneConditionFull, ZoneConditionReadOnly, ZoneConditionOffline:
			return 0, unix.EIO
		}
		if sectorOffset+sectorCount > zone.Start+zone.WritableCapacity() {
			return 0, unix.EIO
		}
		if zone.SequentialRequired() && sectorOffset != zone.WritePointer {
			return 0, unix.EIO
		}
	}

	if _, err := d.blockDevice.WriteAt(p[:sizeBytes], int64(sectorOffset<<SectorShift)); err != nil {
		log.Printf("Emulated zoned device: failed to write %d sectors at sector %d: %s", sectorCount, sectorOffset, err)
		return 0, unix.EIO
	}

	if zone.Sequential() {
		if sectorOffset != zone.WritePointer {
			// Only possible for sequential write preferred
			// zones.
			zone.NonSequential = true
		}
		if end := sectorOffset + sectorCount; end > zone.WritePointer {
			zone.WritePointer = end
		}
		if zone.WritePointer >= zone.Start+zone.WritableCapacity() {
			zone.Condition = ZoneConditionFull
			zone.WritePointer = zone.Start + zone.Length
		} else if zone.Condition == ZoneConditionEmpty || zone.Condition == ZoneConditionClosed {
			zone.Condition = ZoneConditionImplicitOpen
		}
		d.dirty = true
	}
	return sectorCount, nil
}

func (d *emulatedDevice) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	var errs []error
	if err := d.blockDevice.Sync(); err != nil {
		errs = append(errs, util.StatusWrap(err, "Failed to synchronize zone contents"))
	}
	if d.dirty {
		if err := d.metadataStore.WriteZones(d.zones); err != nil {
			errs = append(errs, err)
		} else {
			d.dirty = false
		}
	}
	if err := d.blockDevice.Close(); err != nil {
		errs = append(errs, err)
	}
	return util.StatusFromMultiple(errs)
}
