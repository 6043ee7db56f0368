// Package main contains the entrypoint for the group statistics bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgard/groupstats/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	err := cli.Run(ctx, version)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Command failed", "error", err)
		return 1
	}
	return 0
}
