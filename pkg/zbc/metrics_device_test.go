package zbc_test

import (
	"testing"
	"time"

	"github.com/buildbarn/bb-zone-writer/internal/mock"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMetricsDevice(t *testing.T) {
	ctrl := gomock.NewController(t)

	baseDevice := mock.NewMockDevice(ctrl)
	clock := mock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1000, 0)).AnyTimes()
	device := zbc.NewMetricsDevice(baseDevice, clock, "TestMetricsDevice")

	t.Run("GetDeviceInfo", func(t *testing.T) {
		baseDevice.EXPECT().GetDeviceInfo().Return(zbc.DeviceInfo{Vendor: "Hello"})
		require.Equal(t, zbc.DeviceInfo{Vendor: "Hello"}, device.GetDeviceInfo())
	})

	t.Run("ListZones", func(t *testing.T) {
		zones := []zbc.Zone{{Start: 524288, Length: 524288, Type: zbc.ZoneTypeSequentialWriteRequired, Condition: zbc.ZoneConditionEmpty}}
		baseDevice.EXPECT().ListZones(uint64(0), zbc.ReportEmpty).Return(zones, nil)

		actualZones, err := device.ListZones(0, zbc.ReportEmpty)
		require.NoError(t, err)
		require.Equal(t, zones, actualZones)

		baseDevice.EXPECT().ListZones(uint64(0), zbc.ReportFull).Return(nil, status.Error(codes.Internal, "I/O error"))
		_, err = device.ListZones(0, zbc.ReportFull)
		require.Equal(t, codes.Internal, status.Code(err))
	})

	t.Run("WriteSectors", func(t *testing.T) {
		buffer := make([]byte, 4096)
		baseDevice.EXPECT().WriteSectors(buffer, uint64(8), uint64(524288)).Return(uint64(8), nil)
		baseDevice.EXPECT().WriteSectors(buffer, uint64(8), uint64(524296)).Return(uint64(4), nil)
		baseDevice.EXPECT().WriteSectors(buffer, uint64(8), uint64(524300)).Return(uint64(0), unix.EIO)

		written, err := device.WriteSectors(buffer, 8, 524288)
		require.NoError(t, err)
		require.Equal(t, uint64(8), written)

		written, err = device.WriteSectors(buffer, 8, 524296)
		require.NoError(t, err)
		require.Equal(t, uint64(4), written)

		// Errors are passed through unmodified, so that callers
		// can inspect the error number.
		_, err = device.WriteSectors(buffer, 8, 524300)
		require.Equal(t, unix.EIO, err)
	})

	t.Run("Close", func(t *testing.T) {
		baseDevice.EXPECT().Close()
		require.NoError(t, device.Close())
	})
}

func TestMetricsDeviceCounters(t *testing.T) {
	ctrl := gomock.NewController(t)

	baseDevice := mock.NewMockDevice(ctrl)
	clock := mock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1000, 0)).AnyTimes()
	device := zbc.NewMetricsDevice(baseDevice, clock, "TestMetricsDeviceCounters")

	buffer := make([]byte, 8192)
	baseDevice.EXPECT().WriteSectors(buffer, uint64(16), uint64(0)).Return(uint64(16), nil).Times(3)
	for i := 0; i < 3; i++ {
		_, err := device.WriteSectors(buffer, 16, 0)
		require.NoError(t, err)
	}

	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	writtenSectors := -1.0
	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() != "buildbarn_zbc_device_written_sectors_total" {
			continue
		}
		for _, metric := range metricFamily.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "name" && label.GetValue() == "TestMetricsDeviceCounters" {
					writtenSectors = metric.GetCounter().GetValue()
				}
			}
		}
	}
	require.Equal(t, 48.0, writtenSectors)
}
