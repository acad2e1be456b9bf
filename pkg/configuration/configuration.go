package configuration

import (
	"os"

	"github.com/buildbarn/bb-zone-writer/pkg/util"
)

// ApplicationConfiguration is the top-level configuration of
// bb_zone_write. It is typically written in Jsonnet.
type ApplicationConfiguration struct {
	// Size of every write issued against the zone. Must be a
	// multiple of the block size that the zone requires. Defaults
	// to the system page size.
	IOSizeBytes int `json:"ioSizeBytes"`
	// Maximum number of writes to issue. Zero means the transfer
	// only stops when the source or the zone is exhausted.
	MaximumIOCount uint64 `json:"maximumIoCount"`
	// Byte value written in fill mode.
	FillPattern uint8 `json:"fillPattern"`

	Device DeviceConfiguration `json:"device"`
	Global GlobalConfiguration `json:"global"`
}

// DeviceConfiguration selects the zoned device to write to.
type DeviceConfiguration struct {
	// Path of the device node. For emulated devices, the path of
	// the file holding zone contents.
	Path string `json:"path"`
	// Open the device with O_DIRECT.
	Direct bool `json:"direct"`
	// Name under which Prometheus metrics are reported. Metrics are
	// disabled if empty.
	MetricsName string `json:"metricsName"`
	// If set, the device is emulated on top of a regular file.
	Emulated *EmulatedDeviceConfiguration `json:"emulated"`
}

// EmulatedDeviceConfiguration contains the geometry of a zoned device
// that is emulated on top of a regular file.
type EmulatedDeviceConfiguration struct {
	// "host-managed" or "host-aware".
	Model                  string `json:"model"`
	LogicalBlockSizeBytes  uint32 `json:"logicalBlockSizeBytes"`
	PhysicalBlockSizeBytes uint32 `json:"physicalBlockSizeBytes"`
	ZoneCount              uint64 `json:"zoneCount"`
	ConventionalZones      uint64 `json:"conventionalZones"`
	ZoneSizeSectors        uint64 `json:"zoneSizeSectors"`
	// Defaults to the zone size.
	ZoneCapacitySectors uint64 `json:"zoneCapacitySectors"`
	// Path of the file in which zone state is stored. Defaults to
	// the device path, suffixed with ".zones".
	MetadataPath string `json:"metadataPath"`
	// Discard existing zone contents and state.
	ZeroInitialize bool `json:"zeroInitialize"`
}

// GlobalConfiguration contains options that apply to the process as a
// whole, as opposed to the transfer.
type GlobalConfiguration struct {
	// Files to which log messages are written, in addition to
	// standard error.
	LogPaths []string `json:"logPaths"`
	// Address on which a web server exposing Prometheus metrics and
	// health checks is run during the transfer.
	DiagnosticsHTTPListenAddress string `json:"diagnosticsHttpListenAddress"`
	// Push metrics to a Prometheus Pushgateway upon completion.
	PrometheusPushgateway *PrometheusPushgatewayConfiguration `json:"prometheusPushgateway"`
}

// PrometheusPushgatewayConfiguration contains the location of a
// Prometheus Pushgateway.
type PrometheusPushgatewayConfiguration struct {
	URL      string            `json:"url"`
	Job      string            `json:"job"`
	Grouping map[string]string `json:"grouping"`
	// Regular expression of the names of the metrics to push. All
	// metrics are pushed if empty.
	MetricNamePattern string `json:"metricNamePattern"`
}

// ReadApplicationConfiguration reads the configuration of
// bb_zone_write from a Jsonnet file. Default values are not filled in,
// as command line flags may still override the configuration.
func ReadApplicationConfiguration(path string) (*ApplicationConfiguration, error) {
	var configuration ApplicationConfiguration
	if err := util.UnmarshalConfigurationFromFile(path, &configuration); err != nil {
		return nil, util.StatusWrapf(err, "Failed to read configuration from %s", path)
	}
	return &configuration, nil
}

// SetDefaultApplicationValues fills in fields of the configuration
// that were left unset.
func SetDefaultApplicationValues(configuration *ApplicationConfiguration) {
	if configuration.IOSizeBytes == 0 {
		configuration.IOSizeBytes = os.Getpagesize()
	}
	if emulated := configuration.Device.Emulated; emulated != nil {
		SetDefaultEmulatedDeviceValues(emulated, configuration.Device.Path)
	}
	if pushgateway := configuration.Global.PrometheusPushgateway; pushgateway != nil && pushgateway.Job == "" {
		pushgateway.Job = "bb_zone_write"
	}
}

// SetDefaultEmulatedDeviceValues fills in the geometry of an emulated
// device. By default, a host-managed device with 4 KiB blocks and 64
// zones of 256 MiB is emulated, of which the first zone is
// conventional.
func SetDefaultEmulatedDeviceValues(configuration *EmulatedDeviceConfiguration, devicePath string) {
	if configuration.Model == "" {
		configuration.Model = "host-managed"
	}
	if configuration.LogicalBlockSizeBytes == 0 {
		configuration.LogicalBlockSizeBytes = 4096
	}
	if configuration.PhysicalBlockSizeBytes == 0 {
		configuration.PhysicalBlockSizeBytes = configuration.LogicalBlockSizeBytes
	}
	if configuration.ZoneCount == 0 {
		configuration.ZoneCount = 64
		configuration.ConventionalZones = 1
	}
	if configuration.ZoneSizeSectors == 0 {
		configuration.ZoneSizeSectors = 256 << 20 >> 9
	}
	if configuration.MetadataPath == "" {
		configuration.MetadataPath = devicePath + ".zones"
	}
}
