package zbc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/buildbarn/bb-zone-writer/pkg/testutil"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFileZoneMetadataStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.zones")
	metadataStore := zbc.NewFileZoneMetadataStore(path)

	t.Run("Missing", func(t *testing.T) {
		zones, err := metadataStore.ReadZones()
		require.NoError(t, err)
		require.Empty(t, zones)
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		zones := []zbc.Zone{
			{Start: 0, Length: 64, Capacity: 64, WritePointer: ^uint64(0), Type: zbc.ZoneTypeConventional, Condition: zbc.ZoneConditionNotWritePointer},
			{Start: 64, Length: 64, Capacity: 48, WritePointer: 80, Type: zbc.ZoneTypeSequentialWritePreferred, Condition: zbc.ZoneConditionImplicitOpen, NonSequential: true},
		}
		require.NoError(t, metadataStore.WriteZones(zones))

		readZones, err := metadataStore.ReadZones()
		require.NoError(t, err)
		require.Equal(t, zones, readZones)

		_, err = os.Stat(path + ".tmp")
		require.True(t, os.IsNotExist(err))
	})

	t.Run("Corrupted", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00}, 0o666))

		_, err := metadataStore.ReadZones()
		require.Equal(t, codes.DataLoss, status.Code(err))
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		// CBOR map {1: 2, 2: []}.
		require.NoError(t, os.WriteFile(path, []byte{0xa2, 0x01, 0x02, 0x02, 0x80}, 0o666))

		_, err := metadataStore.ReadZones()
		testutil.RequireEqualStatus(t, status.Errorf(codes.FailedPrecondition, "Zone metadata file %#v has version 2, while version 1 was expected", path), err)
	})
}
