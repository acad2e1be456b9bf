package zonewriter_test

import (
	"bytes"
	"context"
	"testing"
	"testing/iotest"
	"time"

	"github.com/buildbarn/bb-zone-writer/internal/mock"
	"github.com/buildbarn/bb-zone-writer/pkg/testutil"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"
	"github.com/buildbarn/bb-zone-writer/pkg/zonewriter"
	"github.com/stretchr/testify/require"

	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var hostManagedDeviceInfo = zbc.DeviceInfo{
	Vendor:            "Emulated zoned device",
	Model:             zbc.ZoneModelHostManaged,
	LogicalBlockSize:  512,
	PhysicalBlockSize: 4096,
	Sectors:           16 * 524288,
}

// expectTransferDuration lets the clock report that a transfer took a
// given amount of time.
func expectTransferDuration(clock *mock.MockClock, d time.Duration) {
	clock.EXPECT().Now().Return(time.Unix(1000, 0))
	clock.EXPECT().Now().Return(time.Unix(1000, 0).Add(d))
}

// expectWrite expects a write of a given number of sectors at a given
// sector, whose contents must match the provided data.
func expectWrite(t *testing.T, device *mock.MockDevice, expectedData []byte, sectorOffset, written uint64) *gomock.Call {
	sectorCount := uint64(len(expectedData)) >> zbc.SectorShift
	return device.EXPECT().WriteSectors(gomock.Any(), sectorCount, sectorOffset).DoAndReturn(
		func(p []byte, sectorCount, sectorOffset uint64) (uint64, error) {
			require.Equal(t, expectedData, p[:len(expectedData)])
			return written, nil
		})
}

func TestEngineMisalignedIOSize(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Sequential write required zones need to be written in whole
	// physical blocks. No writes may be issued.
	device := mock.NewMockDevice(ctrl)
	device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
	clock := mock.NewMockClock(ctrl)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 2048}, clock)

	_, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
	testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid I/O size 2048 B: must be a multiple of 4096 B"), err)
}

func TestEngineSequentialWritePreferred(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Sequential write preferred zones only need to be written in
	// whole logical blocks. Writing starts at the start of the zone.
	device := mock.NewMockDevice(ctrl)
	deviceInfo := hostManagedDeviceInfo
	deviceInfo.Model = zbc.ZoneModelHostAware
	device.EXPECT().GetDeviceInfo().Return(deviceInfo)
	clock := mock.NewMockClock(ctrl)
	expectTransferDuration(clock, time.Second)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{
		IOSizeBytes:    512,
		MaximumIOCount: 2,
		FillPattern:    0x5a,
	}, clock)

	zone := newSequentialZone(1, zbc.ZoneConditionImplicitOpen, 64)
	zone.Type = zbc.ZoneTypeSequentialWritePreferred
	pattern := bytes.Repeat([]byte{0x5a}, 512)
	expectWrite(t, device, pattern, 524288, 1)
	expectWrite(t, device, pattern, 524289, 1)

	stats, err := engine.Run(context.Background(), device, zone, nil)
	require.NoError(t, err)
	require.Equal(t, zonewriter.TransferStats{
		BytesWritten:   1024,
		SectorsWritten: 2,
		IOCount:        2,
		Elapsed:        time.Second,
		IOPS:           2,
		Bandwidth:      1024,
		Completed:      zonewriter.CompletionReasonIOLimitReached,
	}, stats)
}

func TestEngineNonSequentialZone(t *testing.T) {
	ctrl := gomock.NewController(t)

	device := mock.NewMockDevice(ctrl)
	clock := mock.NewMockClock(ctrl)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

	_, err := engine.Run(context.Background(), device, zbc.Zone{
		Start:    0,
		Length:   524288,
		Capacity: 524288,
		Type:     zbc.ZoneTypeConventional,
	}, nil)
	testutil.RequireEqualStatus(t, status.Error(codes.FailedPrecondition, "Zone 0 is not a sequential zone"), err)
}

func TestEngineFillFullZone(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Full zones have no capacity left. The transfer must terminate
	// without issuing any writes.
	device := mock.NewMockDevice(ctrl)
	device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
	clock := mock.NewMockClock(ctrl)
	expectTransferDuration(clock, 0)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

	stats, err := engine.Run(context.Background(), device, newSequentialZone(4, zbc.ZoneConditionFull, 524288), nil)
	require.NoError(t, err)
	require.Equal(t, zonewriter.TransferStats{
		Completed: zonewriter.CompletionReasonZoneFull,
	}, stats)
}

func TestEnginePartialWrites(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Short writes are accepted. The next write must start right
	// after the sectors that were actually written.
	device := mock.NewMockDevice(ctrl)
	device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
	clock := mock.NewMockClock(ctrl)
	expectTransferDuration(clock, 2*time.Second)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{
		IOSizeBytes:    4096,
		MaximumIOCount: 4,
	}, clock)

	zeroes := make([]byte, 4096)
	gomock.InOrder(
		expectWrite(t, device, zeroes, 524288, 3),
		expectWrite(t, device, zeroes, 524291, 8),
		expectWrite(t, device, zeroes, 524299, 1),
		expectWrite(t, device, zeroes, 524300, 8))

	stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
	require.NoError(t, err)
	require.Equal(t, zonewriter.TransferStats{
		BytesWritten:   20 * 512,
		SectorsWritten: 20,
		IOCount:        4,
		Elapsed:        2 * time.Second,
		IOPS:           2,
		Bandwidth:      5120,
		Completed:      zonewriter.CompletionReasonIOLimitReached,
	}, stats)
}

func TestEngineZoneCapacity(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Writing starts at the write pointer of the zone, and may not
	// go past the zone capacity. The last write is truncated.
	device := mock.NewMockDevice(ctrl)
	device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
	clock := mock.NewMockClock(ctrl)
	expectTransferDuration(clock, time.Second)
	engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

	zone := newSequentialZone(2, zbc.ZoneConditionImplicitOpen, 262128)
	zone.Capacity = 262144
	zeroes := make([]byte, 4096)
	gomock.InOrder(
		expectWrite(t, device, zeroes, 2*524288+262128, 8),
		expectWrite(t, device, zeroes, 2*524288+262136, 8))

	stats, err := engine.Run(context.Background(), device, zone, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(16), stats.SectorsWritten)
	require.Equal(t, zonewriter.CompletionReasonZoneFull, stats.Completed)

	// Same zone, but with a write pointer that is not a multiple of
	// the I/O size away from the capacity.
	device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
	expectTransferDuration(clock, time.Second)
	zone.WritePointer = 2*524288 + 262132
	gomock.InOrder(
		expectWrite(t, device, zeroes, 2*524288+262132, 8),
		expectWrite(t, device, zeroes[:2048], 2*524288+262140, 4))

	stats, err = engine.Run(context.Background(), device, zone, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(12), stats.SectorsWritten)
	require.Equal(t, uint64(2), stats.IOCount)
	require.Equal(t, zonewriter.CompletionReasonZoneFull, stats.Completed)
}

func TestEngineSource(t *testing.T) {
	ctrl := gomock.NewController(t)

	data := make([]byte, 3*4096)
	for i := range data {
		data[i] = byte(i * 7)
	}

	t.Run("WholeChunks", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, time.Second)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		gomock.InOrder(
			expectWrite(t, device, data[:4096], 524288, 8),
			expectWrite(t, device, data[4096:8192], 524296, 8),
			expectWrite(t, device, data[8192:], 524304, 8))

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, zonewriter.TransferStats{
			BytesWritten:   3 * 4096,
			SectorsWritten: 24,
			IOCount:        3,
			Elapsed:        time.Second,
			IOPS:           3,
			Bandwidth:      3 * 4096,
			Completed:      zonewriter.CompletionReasonSourceExhausted,
		}, stats)
		require.Equal(t, "Wrote 12288 B (3 I/Os) in 1.000 s: IOPS 3, BW 12288 B/s", stats.String())
	})

	t.Run("ZeroPaddedTail", func(t *testing.T) {
		// The final chunk is padded with zeroes, so that whole
		// blocks are still written.
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, time.Second)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		tail := append(append([]byte{}, data[8192:10240]...), make([]byte, 2048)...)
		gomock.InOrder(
			expectWrite(t, device, data[:4096], 524288, 8),
			expectWrite(t, device, data[4096:8192], 524296, 8),
			expectWrite(t, device, tail, 524304, 8))

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), bytes.NewReader(data[:10240]))
		require.NoError(t, err)
		require.Equal(t, uint64(3), stats.IOCount)
		require.Equal(t, uint64(3*4096), stats.BytesWritten)
		require.Equal(t, zonewriter.CompletionReasonSourceExhausted, stats.Completed)
	})

	t.Run("EmptySource", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, 0)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), bytes.NewReader(nil))
		require.NoError(t, err)
		require.Equal(t, zonewriter.TransferStats{
			Completed: zonewriter.CompletionReasonSourceExhausted,
		}, stats)
	})

	t.Run("ReadFailure", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, 0)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), iotest.ErrReader(status.Error(codes.Internal, "Disk failure")))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to read 4096 B from source: Disk failure"), err)
		require.Equal(t, zonewriter.CompletionReasonReadFailed, stats.Completed)
	})
}

func TestEngineCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("BeforeFirstWrite", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, 0)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		stats, err := engine.Run(ctx, device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
		require.NoError(t, err)
		require.Equal(t, zonewriter.TransferStats{
			Aborted:   true,
			Completed: zonewriter.CompletionReasonAborted,
		}, stats)
	})

	t.Run("DuringWrite", func(t *testing.T) {
		// Cancellation must not interrupt a write that is in
		// progress. The transfer stops before the next write.
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, time.Second)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		device.EXPECT().WriteSectors(gomock.Any(), uint64(8), uint64(524288)).DoAndReturn(
			func(p []byte, sectorCount, sectorOffset uint64) (uint64, error) {
				cancel()
				return 8, nil
			})

		stats, err := engine.Run(ctx, device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
		require.NoError(t, err)
		require.Equal(t, zonewriter.TransferStats{
			BytesWritten:   4096,
			SectorsWritten: 8,
			IOCount:        1,
			Elapsed:        time.Second,
			IOPS:           1,
			Bandwidth:      4096,
			Aborted:        true,
			Completed:      zonewriter.CompletionReasonAborted,
		}, stats)
	})
}

func TestEngineWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("IOError", func(t *testing.T) {
		// Stats must reflect the data written prior to the
		// failure. The failed write is not retried.
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, time.Second)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		gomock.InOrder(
			device.EXPECT().WriteSectors(gomock.Any(), uint64(8), uint64(524288)).Return(uint64(8), nil),
			device.EXPECT().WriteSectors(gomock.Any(), uint64(8), uint64(524296)).Return(uint64(0), unix.EIO))

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to write 8 sectors at sector 524296 of zone 1: input/output error"), err)
		require.Equal(t, zonewriter.TransferStats{
			BytesWritten:   4096,
			SectorsWritten: 8,
			IOCount:        1,
			Elapsed:        time.Second,
			IOPS:           1,
			Bandwidth:      4096,
			Completed:      zonewriter.CompletionReasonWriteFailed,
		}, stats)
	})

	t.Run("NothingWritten", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().GetDeviceInfo().Return(hostManagedDeviceInfo)
		clock := mock.NewMockClock(ctrl)
		expectTransferDuration(clock, 0)
		engine := zonewriter.NewEngine(zonewriter.EngineOptions{IOSizeBytes: 4096}, clock)

		device.EXPECT().WriteSectors(gomock.Any(), uint64(8), uint64(524288)).Return(uint64(0), nil)

		stats, err := engine.Run(context.Background(), device, newSequentialZone(1, zbc.ZoneConditionEmpty, 0), nil)
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Write of 8 sectors at sector 524288 of zone 1 did not write any data"), err)
		require.Zero(t, stats.IOCount)
	})
}
