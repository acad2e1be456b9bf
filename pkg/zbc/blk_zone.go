package zbc

import (
	"unsafe"
)

// Layout of the structures exchanged with the BLKREPORTZONE ioctl, as
// declared in <linux/blkzoned.h>.

type blkZone struct {
	Start    uint64
	Len      uint64
	Wp       uint64
	Type     uint8
	Cond     uint8
	NonSeq   uint8
	Reset    uint8
	Resv     [4]uint8
	Capacity uint64
	Reserved [24]uint8
}

type blkZoneReport struct {
	Sector  uint64
	NrZones uint32
	Flags   uint32
}

const (
	// blkZoneRepCapacity is set in blkZoneReport.Flags when the
	// kernel has filled in blkZone.Capacity.
	blkZoneRepCapacity = 1 << 0

	blkZoneSize       = unsafe.Sizeof(blkZone{})
	blkZoneReportSize = unsafe.Sizeof(blkZoneReport{})

	// _IOWR(0x12, 130, struct blk_zone_report)
	blkReportZone = 3<<30 | uint(blkZoneReportSize)<<16 | 0x12<<8 | 130
)

// zoneReportBuffer is a buffer that holds a blkZoneReport header,
// followed by an array of blkZone entries. It is backed by a slice of
// uint64, so that the structures are properly aligned.
type zoneReportBuffer struct {
	words []uint64
}

func newZoneReportBuffer(zoneCount int) zoneReportBuffer {
	return zoneReportBuffer{
		words: make([]uint64, (blkZoneReportSize+uintptr(zoneCount)*blkZoneSize)/8),
	}
}

func (b zoneReportBuffer) pointer() unsafe.Pointer {
	return unsafe.Pointer(&b.words[0])
}

func (b zoneReportBuffer) header() *blkZoneReport {
	return (*blkZoneReport)(b.pointer())
}

// zones returns the entries filled in by the kernel.
func (b zoneReportBuffer) zones() []blkZone {
	capacity := (uintptr(len(b.words))*8 - blkZoneReportSize) / blkZoneSize
	count := uintptr(b.header().NrZones)
	if count > capacity {
		count = capacity
	}
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*blkZone)(unsafe.Add(b.pointer(), blkZoneReportSize)), count)
}

// prepare resets the header before reissuing BLKREPORTZONE.
func (b zoneReportBuffer) prepare(startSector uint64) {
	header := b.header()
	header.Sector = startSector
	header.NrZones = uint32((uintptr(len(b.words))*8 - blkZoneReportSize) / blkZoneSize)
	header.Flags = 0
}

// newZoneFromBlkZone converts a zone returned by the kernel. When the
// kernel does not report zone capacities, zones are assumed to be
// writable in their entirety.
func newZoneFromBlkZone(bz *blkZone, capacityValid bool) Zone {
	zone := Zone{
		Start:            bz.Start,
		Length:           bz.Len,
		Capacity:         bz.Len,
		WritePointer:     bz.Wp,
		Type:             ZoneType(bz.Type),
		Condition:        ZoneCondition(bz.Cond),
		ResetRecommended: bz.Reset != 0,
		NonSequential:    bz.NonSeq != 0,
	}
	if capacityValid && bz.Capacity != 0 {
		zone.Capacity = bz.Capacity
	}
	switch zone.Type {
	case ZoneTypeConventional, ZoneTypeSequentialWriteRequired, ZoneTypeSequentialWritePreferred:
	default:
		zone.Type = ZoneTypeUnknown
	}
	return zone
}
