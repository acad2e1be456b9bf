package zonewriter

import (
	"context"
	"io"
	"log"

	"github.com/buildbarn/bb-zone-writer/pkg/blockdevice"
	"github.com/buildbarn/bb-zone-writer/pkg/clock"
	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EngineOptions contains the tunables of a transfer.
type EngineOptions struct {
	// Size of every write. Must be a multiple of the alignment
	// required by the target zone.
	IOSizeBytes int
	// Maximum number of writes to issue. Zero means no limit.
	MaximumIOCount uint64
	// Byte value that is written when no source is provided.
	FillPattern byte
	// Log every write that is issued.
	Verbose bool
}

// Engine writes data sequentially into a single zone of a zoned
// device.
type Engine struct {
	options EngineOptions
	clock   clock.Clock
}

// NewEngine creates an Engine. The clock is used to measure the
// duration of transfers.
func NewEngine(options EngineOptions, clock clock.Clock) *Engine {
	registerEngineMetrics()
	return &Engine{
		options: options,
		clock:   clock,
	}
}

// getIOAlignment returns the granularity at which writes into a zone
// must take place. Zones that only accept writes at the write pointer
// need to be written in whole physical blocks.
func getIOAlignment(deviceInfo *zbc.DeviceInfo, zone *zbc.Zone) int {
	if zone.SequentialRequired() {
		return int(deviceInfo.PhysicalBlockSize)
	}
	return int(deviceInfo.LogicalBlockSize)
}

// getSectorBudget returns the sector at which the transfer starts and
// the number of sectors that may be written from there on. Zones that
// require sequential writes are written starting at their write
// pointer, meaning only the unwritten tail of the zone is available.
func getSectorBudget(zone *zbc.Zone) (base, sectorMax uint64) {
	capacity := zone.WritableCapacity()
	if !zone.SequentialRequired() {
		return zone.Start, capacity
	}
	if zone.Full() {
		return zone.Start, 0
	}
	if zone.WritePointer > zone.Start {
		used := zone.WritePointer - zone.Start
		if used >= capacity {
			return zone.WritePointer, 0
		}
		return zone.WritePointer, capacity - used
	}
	return zone.Start, capacity
}

// Run writes data into a zone. Data is read from source in chunks of
// EngineOptions.IOSizeBytes, where the final chunk is padded with
// zeroes. If source is nil, the zone is filled with
// EngineOptions.FillPattern instead.
//
// The transfer stops when the source is exhausted, the zone has no
// capacity left, the maximum number of writes has been issued, or the
// context is cancelled. Cancellation is only checked between writes.
// It is not considered to be an error. Writes that fail are not
// retried, as the position of the write pointer is unknown
// afterwards. The stats returned upon failure describe the data that
// was written before the failure occurred.
func (e *Engine) Run(ctx context.Context, device zbc.Device, zone zbc.Zone, source io.Reader) (TransferStats, error) {
	var stats TransferStats
	if !zone.Sequential() {
		return stats, status.Errorf(codes.FailedPrecondition, "Zone %d is not a sequential zone", zone.Index())
	}

	deviceInfo := device.GetDeviceInfo()
	if err := deviceInfo.Validate(); err != nil {
		return stats, util.StatusWrap(err, "Invalid device geometry")
	}
	ioSize := e.options.IOSizeBytes
	ioAlign := getIOAlignment(&deviceInfo, &zone)
	if ioSize <= 0 || ioSize%ioAlign != 0 {
		return stats, status.Errorf(codes.InvalidArgument, "Invalid I/O size %d B: must be a multiple of %d B", ioSize, ioAlign)
	}

	buffer, err := blockdevice.NewAlignedBuffer(ioSize)
	if err != nil {
		return stats, err
	}
	defer buffer.Close()
	data := buffer.Bytes()
	if source == nil {
		buffer.Fill(e.options.FillPattern)
	}

	base, sectorMax := getSectorBudget(&zone)
	ioSectors := uint64(ioSize) >> zbc.SectorShift
	var zoneOffset uint64
	var runErr error

	timeStart := e.clock.Now()
	for {
		if ctx.Err() != nil {
			stats.Aborted = true
			stats.Completed = CompletionReasonAborted
			break
		}

		endOfSource := false
		if source != nil {
			n, err := io.ReadFull(source, data)
			if err == io.EOF {
				stats.Completed = CompletionReasonSourceExhausted
				break
			} else if err == io.ErrUnexpectedEOF {
				clear(data[n:])
				endOfSource = true
			} else if err != nil {
				stats.Completed = CompletionReasonReadFailed
				runErr = util.StatusWrapf(err, "Failed to read %d B from source", ioSize)
				break
			}
		}

		sectorCount := ioSectors
		if remaining := sectorMax - zoneOffset; sectorCount > remaining {
			sectorCount = remaining
		}
		if sectorCount == 0 {
			stats.Completed = CompletionReasonZoneFull
			break
		}

		sector := base + zoneOffset
		written, err := device.WriteSectors(data, sectorCount, sector)
		if err != nil {
			stats.Completed = CompletionReasonWriteFailed
			runErr = util.StatusWrapf(util.StatusFromErrno(err), "Failed to write %d sectors at sector %d of zone %d", sectorCount, sector, zone.Index())
			break
		}
		if written == 0 {
			stats.Completed = CompletionReasonWriteFailed
			runErr = status.Errorf(codes.Internal, "Write of %d sectors at sector %d of zone %d did not write any data", sectorCount, sector, zone.Index())
			break
		}
		if written > sectorCount {
			written = sectorCount
		}

		zoneOffset += written
		stats.SectorsWritten += written
		stats.BytesWritten += written << zbc.SectorShift
		stats.IOCount++
		if e.options.Verbose {
			log.Printf("Write %d: %d of %d sectors at sector %d", stats.IOCount, written, sectorCount, sector)
		}

		if endOfSource {
			stats.Completed = CompletionReasonSourceExhausted
			break
		}
		if e.options.MaximumIOCount > 0 && stats.IOCount >= e.options.MaximumIOCount {
			stats.Completed = CompletionReasonIOLimitReached
			break
		}
	}
	stats.Elapsed = e.clock.Now().Sub(timeStart)
	stats.computeRates()
	observeTransfer(&stats)
	return stats, runErr
}
