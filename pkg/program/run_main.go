package program

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

// runMainErrorLogger is used by RunMain() to capture errors returned by
// goroutines. Each error is logged. Cancellation of the remaining
// routines is initiated as soon as the first error arrives.
type runMainErrorLogger struct {
	failed atomic.Bool
	cancel context.CancelFunc
}

func (el *runMainErrorLogger) Log(err error) {
	log.Print("Fatal error: ", err)
	el.failed.Store(true)
	el.cancel()
}

// terminateWithSignal terminates the current process by sending a
// signal to itself.
func terminateWithSignal(currentPID int, terminationSignal os.Signal) {
	// Clear the signal handler and raise the original signal once
	// again. That way we shut down under the original
	// circumstances.
	signal.Reset(terminationSignal)
	process, err := os.FindProcess(currentPID)
	if err != nil {
		panic(err)
	}
	if err := process.Signal(terminationSignal); err != nil {
		panic(err)
	}

	// process.Signal() does not guarantee that the signal is
	// delivered to the same thread. Fall back to calling os.Exit()
	// if we don't get terminated via signal delivery.
	//
	// More details:
	// https://github.com/golang/go/issues/19326
	time.Sleep(5 * time.Millisecond)
	os.Exit(1)
}

var terminationSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// RunMain runs a program that supports graceful termination. Programs
// consist of a pool of routines that may have dependencies on each
// other. Programs terminate if one of the following cases occur:
//
//   - The root routine and all of its siblings have terminated. In that
//     case the program terminates with exit code 0, or exit code 1 if
//     one of the routines failed with a non-nil error.
//
//   - The program receives SIGINT, SIGTERM or SIGQUIT. The context of
//     the root routine is canceled, and the program terminates as if
//     the routines completed. Routines are expected to stop at the next
//     point where this can be done without losing consistency. Upon
//     receipt of a second signal, the program terminates with that
//     signal immediately.
//
// In case termination occurs, all remaining routines are canceled,
// respecting dependencies between these routines. This can for example
// be used to ensure a diagnostics web server remains available until
// the transfer that it reports on has completed.
func RunMain(routine Routine) {
	currentPID := os.Getpid()

	ctx, cancel := context.WithCancel(context.Background())
	errorLogger := &runMainErrorLogger{
		cancel: cancel,
	}

	// Handle incoming signals.
	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, terminationSignals...)
	go func() {
		select {
		case receivedSignal := <-signalChan:
			log.Printf("Received %#v signal. Initiating graceful shutdown.", receivedSignal.String())
			cancel()
		case <-ctx.Done():
			return
		}
		receivedSignal := <-signalChan
		terminateWithSignal(currentPID, receivedSignal)
	}()

	// Launch the initial routine and any goroutines that it spawns.
	run(ctx, errorLogger, routine)

	if errorLogger.failed.Load() {
		os.Exit(1)
	}
	os.Exit(0)
}
