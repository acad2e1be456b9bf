package blockdevice_test

import (
	"os"
	"testing"
	"unsafe"

	"github.com/buildbarn/bb-zone-writer/pkg/blockdevice"
	"github.com/buildbarn/bb-zone-writer/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAlignedBuffer(t *testing.T) {
	t.Run("InvalidSize", func(t *testing.T) {
		_, err := blockdevice.NewAlignedBuffer(0)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Invalid buffer size of 0 bytes"), err)
	})

	t.Run("Success", func(t *testing.T) {
		buffer, err := blockdevice.NewAlignedBuffer(12288)
		require.NoError(t, err)

		data := buffer.Bytes()
		require.Len(t, data, 12288)
		require.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&data[0]))%uintptr(os.Getpagesize()))

		// Anonymous memory maps are zero initialized.
		require.Equal(t, make([]byte, 12288), data)

		buffer.Fill(0xa5)
		for _, c := range data {
			require.Equal(t, byte(0xa5), c)
		}
		require.NoError(t, buffer.Close())
	})
}
