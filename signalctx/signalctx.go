// Package signalctx wraps process signal handling behind a
// context.Context, a reusable cancellation source for the router and
// every link goroutine.
package signalctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithShutdownSignal returns a context that is cancelled the first time
// the process receives SIGINT or SIGTERM, along with a stop func that
// releases the underlying signal.Notify registration.
func WithShutdownSignal(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
