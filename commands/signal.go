package commands

import (
	"context"
	"os"
	"os/signal"
)

// interruptible returns a context cancelled on the first interrupt from the os.
// done must be called once the command finishes.
func interruptible(parent context.Context) (ctx context.Context, done func()) {
	if parent == nil {
		parent = context.Background()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	doneCh := make(chan struct{})

	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}
