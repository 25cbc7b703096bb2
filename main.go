package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/EngThi/YT/cmd"
	"github.com/EngThi/YT/internal/observability"
)

func main() {
	// The root context is cancelled on SIGINT/SIGTERM so that a running
	// automation can close the browser and flush its session state.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
