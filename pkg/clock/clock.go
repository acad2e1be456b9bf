package clock

import (
	"time"
)

// Clock is an interface around the standard library functions that
// provide time handling. It has been added to aid unit testing, so
// that throughput computations can be validated against fixed points
// in time.
type Clock interface {
	// Return the current time of day, including a monotonic clock
	// reading. Equivalent to time.Now().
	Now() time.Time
}
