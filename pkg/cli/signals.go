package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that cancel a SignalContext.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ReloadSignals ask a long-running command to re-read its configuration.
var ReloadSignals = []os.Signal{syscall.SIGHUP}

// SignalContext returns a context derived from parent that is cancelled on
// SIGINT or SIGTERM. Call stop to release the signal registration; a second
// signal after stop terminates the process with the default behaviour.
func SignalContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}

// NotifyReload returns a channel that receives ReloadSignals until stop is
// called.
func NotifyReload() (signals <-chan os.Signal, stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, ReloadSignals...)
	return ch, func() { signal.Stop(ch) }
}
