package zbc

import (
	"fmt"
)

const (
	// SectorShift is the base 2 logarithm of SectorSize.
	SectorShift = 9
	// SectorSize is the size of the unit in which zone geometry and
	// write offsets are expressed. Sectors are always 512 bytes,
	// regardless of the logical block size of the device.
	SectorSize = 1 << SectorShift
)

// ZoneType describes the write constraints of a zone.
type ZoneType uint8

const (
	// ZoneTypeUnknown is reported for zones whose type is not
	// recognized.
	ZoneTypeUnknown ZoneType = 0x0
	// ZoneTypeConventional zones have no write pointer and accept
	// writes at arbitrary locations.
	ZoneTypeConventional ZoneType = 0x1
	// ZoneTypeSequentialWriteRequired zones only accept writes at
	// their write pointer. Used by host-managed devices.
	ZoneTypeSequentialWriteRequired ZoneType = 0x2
	// ZoneTypeSequentialWritePreferred zones accept writes at any
	// location, but perform best when written sequentially. Used
	// by host-aware devices.
	ZoneTypeSequentialWritePreferred ZoneType = 0x3
)

func (t ZoneType) String() string {
	switch t {
	case ZoneTypeConventional:
		return "Conventional"
	case ZoneTypeSequentialWriteRequired:
		return "Sequential-write-required"
	case ZoneTypeSequentialWritePreferred:
		return "Sequential-write-preferred"
	default:
		return "Unknown-zone-type"
	}
}

// ZoneCondition is the lifecycle state of a zone.
type ZoneCondition uint8

// Zone conditions, using the numbering of the ZBC/ZAC standards.
const (
	ZoneConditionNotWritePointer ZoneCondition = 0x0
	ZoneConditionEmpty           ZoneCondition = 0x1
	ZoneConditionImplicitOpen    ZoneCondition = 0x2
	ZoneConditionExplicitOpen    ZoneCondition = 0x3
	ZoneConditionClosed          ZoneCondition = 0x4
	ZoneConditionReadOnly        ZoneCondition = 0xd
	ZoneConditionFull            ZoneCondition = 0xe
	ZoneConditionOffline         ZoneCondition = 0xf
)

func (c ZoneCondition) String() string {
	switch c {
	case ZoneConditionNotWritePointer:
		return "Not-write-pointer"
	case ZoneConditionEmpty:
		return "Empty"
	case ZoneConditionImplicitOpen:
		return "Implicit-open"
	case ZoneConditionExplicitOpen:
		return "Explicit-open"
	case ZoneConditionClosed:
		return "Closed"
	case ZoneConditionReadOnly:
		return "Read-only"
	case ZoneConditionFull:
		return "Full"
	case ZoneConditionOffline:
		return "Offline"
	default:
		return "Unknown-zone-condition"
	}
}

// Zone is a snapshot of the state of a single zone, as returned by a
// zone report. All positions and sizes are expressed in sectors of
// SectorSize bytes.
//
// Zones are never updated in place. The authoritative write pointer
// is maintained by the device, and only advances as a consequence of
// successful writes.
type Zone struct {
	Start        uint64
	Length       uint64
	Capacity     uint64
	WritePointer uint64
	Type         ZoneType
	Condition    ZoneCondition

	ResetRecommended bool
	NonSequential    bool
}

// Sequential returns whether the zone has a write pointer, meaning
// data is appended to it in order.
func (z *Zone) Sequential() bool {
	return z.Type == ZoneTypeSequentialWriteRequired || z.Type == ZoneTypeSequentialWritePreferred
}

// SequentialRequired returns whether the zone rejects writes that do
// not start at the write pointer.
func (z *Zone) SequentialRequired() bool {
	return z.Type == ZoneTypeSequentialWriteRequired
}

// Conventional returns whether the zone has no write constraints.
func (z *Zone) Conventional() bool {
	return z.Type == ZoneTypeConventional
}

// Full returns whether the zone is reported as being full.
func (z *Zone) Full() bool {
	return z.Condition == ZoneConditionFull
}

// WritableCapacity returns the number of sectors of the zone that can
// hold data. Devices that do not report a zone capacity have zones
// that can be written in their entirety.
func (z *Zone) WritableCapacity() uint64 {
	if z.Capacity == 0 || z.Capacity > z.Length {
		return z.Length
	}
	return z.Capacity
}

// Index returns the position of the zone on the device, assuming all
// zones have the same length. The result is only meaningful for
// logging, as devices may use zones of varying lengths.
func (z *Zone) Index() uint64 {
	if z.Length == 0 {
		return 0
	}
	return z.Start / z.Length
}

func (z Zone) String() string {
	return fmt.Sprintf(
		"type 0x%x (%s), cond 0x%x (%s), rwp %t, non_seq %t, sector %d, %d sectors, capacity %d, wp %d",
		uint8(z.Type), z.Type,
		uint8(z.Condition), z.Condition,
		z.ResetRecommended,
		z.NonSequential,
		z.Start,
		z.Length,
		z.WritableCapacity(),
		z.WritePointer)
}
