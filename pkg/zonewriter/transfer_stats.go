package zonewriter

import (
	"fmt"
	"time"
)

// CompletionReason indicates why a transfer stopped.
type CompletionReason int

const (
	// CompletionReasonAborted is reported when the transfer was
	// cancelled before the source or the zone was exhausted.
	CompletionReasonAborted CompletionReason = iota
	// CompletionReasonSourceExhausted is reported when all data
	// from the source has been written.
	CompletionReasonSourceExhausted
	// CompletionReasonZoneFull is reported when the writable
	// capacity of the zone has been used up.
	CompletionReasonZoneFull
	// CompletionReasonIOLimitReached is reported when the maximum
	// number of write commands has been issued.
	CompletionReasonIOLimitReached
	// CompletionReasonWriteFailed is reported when the device
	// rejected a write.
	CompletionReasonWriteFailed
	// CompletionReasonReadFailed is reported when data could not be
	// read from the source.
	CompletionReasonReadFailed
)

func (r CompletionReason) String() string {
	switch r {
	case CompletionReasonAborted:
		return "aborted"
	case CompletionReasonSourceExhausted:
		return "source exhausted"
	case CompletionReasonZoneFull:
		return "zone full"
	case CompletionReasonIOLimitReached:
		return "I/O limit reached"
	case CompletionReasonWriteFailed:
		return "write failed"
	case CompletionReasonReadFailed:
		return "read failed"
	default:
		return "unknown"
	}
}

// TransferStats contains the progress made by a transfer. Stats are
// also returned when a transfer fails, as data written before the
// failure cannot be taken back.
type TransferStats struct {
	BytesWritten   uint64
	SectorsWritten uint64
	IOCount        uint64
	Elapsed        time.Duration

	// Number of write commands and bytes per second. Both are left
	// zero if no time elapsed.
	IOPS      uint64
	Bandwidth uint64

	Aborted   bool
	Completed CompletionReason
}

func (s *TransferStats) computeRates() {
	if seconds := s.Elapsed.Seconds(); seconds > 0 {
		s.IOPS = uint64(float64(s.IOCount) / seconds)
		s.Bandwidth = uint64(float64(s.BytesWritten) / seconds)
	}
}

func (s TransferStats) String() string {
	return fmt.Sprintf(
		"Wrote %d B (%d I/Os) in %.3f s: IOPS %d, BW %d B/s",
		s.BytesWritten,
		s.IOCount,
		s.Elapsed.Seconds(),
		s.IOPS,
		s.Bandwidth)
}
