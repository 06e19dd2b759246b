package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/henryp-7/hft-bot/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Real-money latch: routed execution needs an explicit opt-in beyond
	// the config file.
	if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
		fmt.Fprintln(os.Stderr, "SAFETY_GUARD: live trading requires 'CONFIRM_REAL_MONEY=true' environment variable")
		os.Exit(1)
	}

	bootstrap, err := app.NewBootstrap(*configPath, true)
	if err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
