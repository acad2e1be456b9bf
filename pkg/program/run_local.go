package program

import (
	"context"
	"sync"
)

// runLocalErrorLogger retains the first error returned by a routine,
// and cancels all other routines once it arrives.
type runLocalErrorLogger struct {
	once       sync.Once
	firstError error
	cancel     context.CancelFunc
}

func (el *runLocalErrorLogger) Log(err error) {
	el.once.Do(func() {
		el.firstError = err
		el.cancel()
	})
}

// RunLocal runs a routine and all of the routines it spawns until
// completion, returning the first error that occurred. Unlike
// RunMain(), it does not install any signal handlers and does not
// terminate the process, making it suitable for running a transfer as
// part of a larger program.
func RunLocal(ctx context.Context, routine Routine) error {
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errorLogger := &runLocalErrorLogger{
		cancel: cancel,
	}
	run(innerCtx, errorLogger, routine)
	return errorLogger.firstError
}
