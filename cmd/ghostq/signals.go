package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

var (
	signalCtx context.Context
	cancelSig context.CancelFunc
	once      sync.Once
)

// signalContext returns a context cancelled on SIGTERM/SIGINT, adapted
// from the teacher's pkg/lib/signals.Context(): a second signal exits
// the process directly rather than waiting on a graceful shutdown that
// a one-shot CLI solve has no use for.
func signalContext() context.Context {
	once.Do(func() {
		c := make(chan os.Signal, 2)
		signal.Notify(c, shutdownSignals...)
		signalCtx, cancelSig = context.WithCancel(context.Background())
		go func() {
			<-c
			cancelSig()
			<-c
			os.Exit(1)
		}()
	})
	return signalCtx
}
