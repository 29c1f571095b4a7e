package pipeline

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on the first SIGINT or
// SIGTERM, after calling onShutdown. A second signal exits with status 1.
func SetupSignalHandler(parent context.Context, onShutdown func()) context.Context {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	return handleSignals(parent, sigCh, onShutdown, os.Exit)
}

func handleSignals(parent context.Context, sigCh <-chan os.Signal, onShutdown func(), exit func(int)) context.Context {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("[Signal] Received %v, finishing current request and stopping (again to force exit)", sig)
		case <-parent.Done():
			cancel()
			return
		}

		if onShutdown != nil {
			onShutdown()
		}
		cancel()

		sig := <-sigCh
		log.Printf("[Signal] Received second %v, forcing exit", sig)
		exit(1)
	}()

	return ctx
}
