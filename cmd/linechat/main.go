package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"linechat/internal/logger"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
