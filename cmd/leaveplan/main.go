package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appLog "leaveplan/internal/log"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	appLog.Close()
	if err != nil {
		os.Exit(1)
	}
}
