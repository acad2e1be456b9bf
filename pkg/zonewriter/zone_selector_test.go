package zonewriter_test

import (
	"testing"

	"github.com/buildbarn/bb-zone-writer/internal/mock"
	"github.com/buildbarn/bb-zone-writer/pkg/testutil"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"
	"github.com/buildbarn/bb-zone-writer/pkg/zonewriter"
	"github.com/stretchr/testify/require"

	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newSequentialZone(index uint64, condition zbc.ZoneCondition, writePointerOffset uint64) zbc.Zone {
	return zbc.Zone{
		Start:        index * 524288,
		Length:       524288,
		Capacity:     524288,
		WritePointer: index*524288 + writePointerOffset,
		Type:         zbc.ZoneTypeSequentialWriteRequired,
		Condition:    condition,
	}
}

func TestSelectTargetZone(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("EmptyZonesPreferred", func(t *testing.T) {
		// Implicitly opened zones must not be considered if
		// empty zones are present.
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().ListZones(uint64(0), zbc.ReportEmpty).Return([]zbc.Zone{
			newSequentialZone(3, zbc.ZoneConditionEmpty, 0),
			newSequentialZone(7, zbc.ZoneConditionEmpty, 0),
		}, nil)

		zone, err := zonewriter.SelectTargetZone(device)
		require.NoError(t, err)
		require.Equal(t, newSequentialZone(3, zbc.ZoneConditionEmpty, 0), zone)
	})

	t.Run("ImplicitOpenFallback", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().ListZones(uint64(0), zbc.ReportEmpty)
		device.EXPECT().ListZones(uint64(0), zbc.ReportImplicitOpen).Return([]zbc.Zone{
			newSequentialZone(2, zbc.ZoneConditionImplicitOpen, 4096),
			newSequentialZone(5, zbc.ZoneConditionImplicitOpen, 8),
		}, nil)

		zone, err := zonewriter.SelectTargetZone(device)
		require.NoError(t, err)
		require.Equal(t, newSequentialZone(2, zbc.ZoneConditionImplicitOpen, 4096), zone)
	})

	t.Run("NoWritableZone", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().ListZones(uint64(0), zbc.ReportEmpty).Return([]zbc.Zone{}, nil)
		device.EXPECT().ListZones(uint64(0), zbc.ReportImplicitOpen)

		_, err := zonewriter.SelectTargetZone(device)
		testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No write target zone found"), err)
	})

	t.Run("ConventionalZone", func(t *testing.T) {
		// Conventional zones must never be written, even if
		// they are the only zones reported.
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().ListZones(uint64(0), zbc.ReportEmpty).Return([]zbc.Zone{{
			Start:        0,
			Length:       524288,
			Capacity:     524288,
			WritePointer: ^uint64(0),
			Type:         zbc.ZoneTypeConventional,
			Condition:    zbc.ZoneConditionEmpty,
		}}, nil)

		_, err := zonewriter.SelectTargetZone(device)
		require.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("ListFailure", func(t *testing.T) {
		device := mock.NewMockDevice(ctrl)
		device.EXPECT().ListZones(uint64(0), zbc.ReportEmpty).Return(nil, status.Error(codes.Internal, "input/output error"))

		_, err := zonewriter.SelectTargetZone(device)
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to list empty zones: input/output error"), err)
	})
}
