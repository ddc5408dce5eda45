package osutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext lives until Ctrl+C or SIGTERM. Cancelling it tears down any
// chrome process started under it, a second signal exits immediately.
func SignalContext() context.Context {
	return CancelOnSignal(context.Background(), func() { os.Exit(130) }, syscall.SIGINT, syscall.SIGTERM)
}

// CancelOnSignal returns a child of parent that is cancelled on the first of
// signals, force is called if another one arrives after that.
func CancelOnSignal(parent context.Context, force func(), signals ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, signals...)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-parent.Done():
			signal.Stop(sigs)
			return
		}
		<-sigs
		force()
	}()

	return ctx
}
