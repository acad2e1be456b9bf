package zonewriter

import (
	"io"
	"os"
	"strings"

	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/klauspost/compress/zstd"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Source of data that is written into a zone.
type Source struct {
	io.ReadCloser

	sizeBytes   int64
	blockDevice bool
}

// SizeBytes returns the size of the file or block device. For
// compressed sources, this is the size prior to decompression.
func (s *Source) SizeBytes() int64 {
	return s.sizeBytes
}

// IsBlockDevice returns whether the source is a block device, as
// opposed to a regular file.
func (s *Source) IsBlockDevice() bool {
	return s.blockDevice
}

// OpenSource opens a regular file or a block device for reading. Other
// types of files are rejected. If decompress is set or the path has a
// ".zst" extension, the contents are decompressed using Zstandard.
func OpenSource(path string, decompress bool) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Open %s failed", path)
	}
	source, err := newSourceFromFile(f, path, decompress || strings.HasSuffix(path, ".zst"))
	if err != nil {
		f.Close()
		return nil, err
	}
	return source, nil
}

func newSourceFromFile(f *os.File, path string, decompress bool) (*Source, error) {
	fileInfo, err := f.Stat()
	if err != nil {
		return nil, util.StatusWrapf(util.StatusFromErrno(err), "Stat %s failed", path)
	}

	source := &Source{ReadCloser: f}
	switch mode := fileInfo.Mode(); {
	case mode.IsRegular():
		source.sizeBytes = fileInfo.Size()
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0:
		sizeBytes, err := getBlockDeviceSize(f)
		if err != nil {
			return nil, util.StatusWrapf(err, "Failed to obtain size of block device %s", path)
		}
		source.sizeBytes = sizeBytes
		source.blockDevice = true
	default:
		return nil, status.Errorf(codes.InvalidArgument, "Unsupported file type for %s (not a regular file or a block device)", path)
	}

	if decompress {
		decoder, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, util.StatusWrapfWithCode(err, codes.Internal, "Failed to create Zstandard decoder for %s", path)
		}
		source.ReadCloser = &zstdSourceReader{Decoder: decoder, file: f}
	}
	return source, nil
}

// zstdSourceReader decompresses the contents of a source. Closing it
// releases both the decoder and the file.
type zstdSourceReader struct {
	*zstd.Decoder

	file *os.File
}

func (r *zstdSourceReader) Close() error {
	r.Decoder.Close()
	return r.file.Close()
}
