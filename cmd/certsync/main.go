package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"certsync/internal/cli"
	"certsync/internal/platform/config"
	"certsync/internal/platform/logger"
	"certsync/internal/platform/metrics"
)

// main loads configuration once, runs one command and flushes metrics. Every
// command owns its own store handle.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "certsync: invalid configuration: %v\n", err)
		return cli.ExitUsage
	}
	log := logger.New(cfg.Log, os.Stderr)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.NewApp(cfg, log, m))
	cmdErr := root.ExecuteContext(ctx)
	if cmdErr != nil {
		log.Error("command failed", "error", cmdErr)
		fmt.Fprintf(os.Stderr, "certsync: %v\n", cmdErr)
	}

	if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		log.Warn("failed to write metrics textfile", "path", cfg.Metrics.TextfilePath, "error", err)
	}
	return cli.ExitCode(cmdErr)
}
