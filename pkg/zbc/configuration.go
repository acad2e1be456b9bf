package zbc

import (
	"github.com/buildbarn/bb-zone-writer/pkg/blockdevice"
	"github.com/buildbarn/bb-zone-writer/pkg/clock"
	"github.com/buildbarn/bb-zone-writer/pkg/configuration"
	"github.com/buildbarn/bb-zone-writer/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewDeviceFromConfiguration opens a zoned device based on parameters
// provided in a configuration file.
func NewDeviceFromConfiguration(config *configuration.DeviceConfiguration) (Device, error) {
	if config.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "No device path specified")
	}

	var device Device
	if emulated := config.Emulated; emulated != nil {
		model, err := NewZoneModelFromString(emulated.Model)
		if err != nil {
			return nil, err
		}
		geometry := EmulatedGeometry{
			Model:               model,
			LogicalBlockSize:    emulated.LogicalBlockSizeBytes,
			PhysicalBlockSize:   emulated.PhysicalBlockSizeBytes,
			ZoneCount:           emulated.ZoneCount,
			ConventionalZones:   emulated.ConventionalZones,
			ZoneSizeSectors:     emulated.ZoneSizeSectors,
			ZoneCapacitySectors: emulated.ZoneCapacitySectors,
		}
		if err := geometry.Validate(); err != nil {
			return nil, util.StatusWrap(err, "Invalid emulated device geometry")
		}

		blockDevice, err := blockdevice.NewBlockDeviceFromFile(
			config.Path,
			SectorSize,
			int64(geometry.ZoneCount*geometry.ZoneSizeSectors),
			emulated.ZeroInitialize)
		if err != nil {
			return nil, util.StatusWrapf(err, "Open %s failed", config.Path)
		}
		metadataStore := NewFileZoneMetadataStore(emulated.MetadataPath)
		if emulated.ZeroInitialize {
			// Discard zone state along with the contents.
			if err := metadataStore.WriteZones(nil); err != nil {
				blockDevice.Close()
				return nil, err
			}
		}
		device, err = NewEmulatedDevice(blockDevice, metadataStore, geometry)
		if err != nil {
			blockDevice.Close()
			return nil, util.StatusWrapf(err, "Open %s failed", config.Path)
		}
	} else {
		var err error
		device, err = NewDeviceFromPath(config.Path, config.Direct)
		if err != nil {
			return nil, err
		}
	}

	if config.MetricsName != "" {
		device = NewMetricsDevice(device, clock.SystemClock, config.MetricsName)
	}
	return device, nil
}
