package zbc

import (
	"fmt"
)

// ReportingOptions selects which zones are returned by
// Device.ListZones(). The values match the reporting options of the
// REPORT ZONES command.
type ReportingOptions uint8

// Reporting options supported by ListZones().
const (
	ReportAll              ReportingOptions = 0x00
	ReportEmpty            ReportingOptions = 0x01
	ReportImplicitOpen     ReportingOptions = 0x02
	ReportExplicitOpen     ReportingOptions = 0x03
	ReportClosed           ReportingOptions = 0x04
	ReportFull             ReportingOptions = 0x05
	ReportReadOnly         ReportingOptions = 0x06
	ReportOffline          ReportingOptions = 0x07
	ReportResetRecommended ReportingOptions = 0x10
	ReportNonSequential    ReportingOptions = 0x11
	ReportNotWritePointer  ReportingOptions = 0x3f
)

// Matches returns whether a zone is selected by the reporting options.
func (o ReportingOptions) Matches(zone *Zone) bool {
	switch o {
	case ReportAll:
		return true
	case ReportEmpty:
		return zone.Condition == ZoneConditionEmpty
	case ReportImplicitOpen:
		return zone.Condition == ZoneConditionImplicitOpen
	case ReportExplicitOpen:
		return zone.Condition == ZoneConditionExplicitOpen
	case ReportClosed:
		return zone.Condition == ZoneConditionClosed
	case ReportFull:
		return zone.Condition == ZoneConditionFull
	case ReportReadOnly:
		return zone.Condition == ZoneConditionReadOnly
	case ReportOffline:
		return zone.Condition == ZoneConditionOffline
	case ReportResetRecommended:
		return zone.ResetRecommended
	case ReportNonSequential:
		return zone.NonSequential
	case ReportNotWritePointer:
		return zone.Condition == ZoneConditionNotWritePointer
	default:
		return false
	}
}

func (o ReportingOptions) String() string {
	switch o {
	case ReportAll:
		return "all"
	case ReportEmpty:
		return "empty"
	case ReportImplicitOpen:
		return "implicit-open"
	case ReportExplicitOpen:
		return "explicit-open"
	case ReportClosed:
		return "closed"
	case ReportFull:
		return "full"
	case ReportReadOnly:
		return "read-only"
	case ReportOffline:
		return "offline"
	case ReportResetRecommended:
		return "reset-recommended"
	case ReportNonSequential:
		return "non-sequential"
	case ReportNotWritePointer:
		return "not-write-pointer"
	default:
		return fmt.Sprintf("unknown-0x%02x", uint8(o))
	}
}

// FilterZones returns the zones that match the reporting options,
// starting with the zone containing startSector. The order of the zones is preserved.
func FilterZones(zones []Zone, startSector uint64, options ReportingOptions) []Zone {
	var matches []Zone
	for i := range zones {
		if zone := &zones[i]; zone.Start+zone.Length > startSector && options.Matches(zone) {
			matches = append(matches, *zone)
		}
	}
	return matches
}
