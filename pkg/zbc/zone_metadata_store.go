package zbc

import (
	"os"

	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/fxamacker/cbor/v2"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ZoneMetadataStore persists the state of the zones of an emulated
// zoned device, so that write pointers survive across invocations.
type ZoneMetadataStore interface {
	// ReadZones returns the zones that were written previously. If
	// no state has been written yet, no zones are returned.
	ReadZones() ([]Zone, error)
	WriteZones(zones []Zone) error
}

const zoneMetadataVersion = 1

// zoneMetadataFile is the CBOR encoded layout of the metadata file.
// Integer keys keep the file compact for devices with many zones.
type zoneMetadataFile struct {
	Version int                  `cbor:"1,keyasint"`
	Zones   []zoneMetadataRecord `cbor:"2,keyasint"`
}

type zoneMetadataRecord struct {
	Start            uint64 `cbor:"1,keyasint"`
	Length           uint64 `cbor:"2,keyasint"`
	Capacity         uint64 `cbor:"3,keyasint"`
	WritePointer     uint64 `cbor:"4,keyasint"`
	Type             uint8  `cbor:"5,keyasint"`
	Condition        uint8  `cbor:"6,keyasint"`
	ResetRecommended bool   `cbor:"7,keyasint,omitempty"`
	NonSequential    bool   `cbor:"8,keyasint,omitempty"`
}

type fileZoneMetadataStore struct {
	path string
}

// NewFileZoneMetadataStore creates a ZoneMetadataStore that stores
// zone state in a CBOR encoded file. Updates are written to a
// temporary file that is renamed into place, so that a crash never
// leaves a partially written metadata file behind.
func NewFileZoneMetadataStore(path string) ZoneMetadataStore {
	return &fileZoneMetadataStore{path: path}
}

func (ms *fileZoneMetadataStore) ReadZones() ([]Zone, error) {
	data, err := os.ReadFile(ms.path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, util.StatusWrapf(err, "Failed to read zone metadata file %#v", ms.path)
	}

	var file zoneMetadataFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return nil, util.StatusWrapfWithCode(err, codes.DataLoss, "Failed to decode zone metadata file %#v", ms.path)
	}
	if file.Version != zoneMetadataVersion {
		return nil, status.Errorf(codes.FailedPrecondition, "Zone metadata file %#v has version %d, while version %d was expected", ms.path, file.Version, zoneMetadataVersion)
	}
	zones := make([]Zone, 0, len(file.Zones))
	for _, record := range file.Zones {
		zones = append(zones, Zone{
			Start:            record.Start,
			Length:           record.Length,
			Capacity:         record.Capacity,
			WritePointer:     record.WritePointer,
			Type:             ZoneType(record.Type),
			Condition:        ZoneCondition(record.Condition),
			ResetRecommended: record.ResetRecommended,
			NonSequential:    record.NonSequential,
		})
	}
	return zones, nil
}

func (ms *fileZoneMetadataStore) WriteZones(zones []Zone) error {
	file := zoneMetadataFile{
		Version: zoneMetadataVersion,
		Zones:   make([]zoneMetadataRecord, 0, len(zones)),
	}
	for _, zone := range zones {
		file.Zones = append(file.Zones, zoneMetadataRecord{
			Start:            zone.Start,
			Length:           zone.Length,
			Capacity:         zone.Capacity,
			WritePointer:     zone.WritePointer,
			Type:             uint8(zone.Type),
			Condition:        uint8(zone.Condition),
			ResetRecommended: zone.ResetRecommended,
			NonSequential:    zone.NonSequential,
		})
	}
	data, err := cbor.Marshal(&file)
	if err != nil {
		return util.StatusWrap(err, "Failed to encode zone metadata")
	}

	temporaryPath := ms.path + ".tmp"
	if err := os.WriteFile(temporaryPath, data, 0o666); err != nil {
		return util.StatusWrapf(err, "Failed to write zone metadata file %#v", temporaryPath)
	}
	if err := os.Rename(temporaryPath, ms.path); err != nil {
		return util.StatusWrapf(err, "Failed to rename zone metadata file %#v", temporaryPath)
	}
	return nil
}
