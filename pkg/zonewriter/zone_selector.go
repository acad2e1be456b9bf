package zonewriter

import (
	"log"

	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Zone conditions that are eligible for writing, in order of
// preference.
var targetZoneReportingOptions = []zbc.ReportingOptions{
	zbc.ReportEmpty,
	zbc.ReportImplicitOpen,
}

// SelectTargetZone picks the zone to which a transfer should write.
// The first empty zone is returned. If the device has no empty zones,
// the first implicitly opened zone is returned instead.
//
// The returned zone is a snapshot. Its write pointer is not updated
// as data is written.
func SelectTargetZone(device zbc.Device) (zbc.Zone, error) {
	zone, found, err := getFirstMatchingZone(device, targetZoneReportingOptions)
	if err != nil {
		return zbc.Zone{}, err
	}
	if !found {
		return zbc.Zone{}, status.Error(codes.ResourceExhausted, "No write target zone found")
	}
	if !zone.Sequential() {
		return zbc.Zone{}, status.Errorf(codes.FailedPrecondition, "Target zone %d is not a sequential zone: %s", zone.Index(), zone)
	}
	log.Printf("Target zone: Zone %d, %s", zone.Index(), zone)
	return zone, nil
}

// getFirstMatchingZone returns the first zone of the first reporting
// option that yields any zones. Subsequent reporting options are not
// queried.
func getFirstMatchingZone(device zbc.Device, reportingOptions []zbc.ReportingOptions) (zbc.Zone, bool, error) {
	for _, options := range reportingOptions {
		zones, err := device.ListZones(0, options)
		if err != nil {
			return zbc.Zone{}, false, util.StatusWrapf(err, "Failed to list %s zones", options)
		}
		if len(zones) > 0 {
			return zones[0], true, nil
		}
	}
	return zbc.Zone{}, false, nil
}
