// Command hitserver accepts TCP connections on a fixed-size worker pool,
// answers each with a static page and counts the hits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vnykmshr/hitpool/internal/config"
)

var version = "dev"

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML configuration file")
		addr       = flag.String("addr", "", "listen address, overrides server.addr")
		workers    = flag.Int("workers", -1, "worker count, overrides scheduler.workers (0 = one per CPU)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hitserver: %v\n", err)
		os.Exit(2)
	}
	cfg, err = applyFlags(cfg, *addr, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hitserver: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("hitserver stopped", "error", err)
		os.Exit(1)
	}
}

// applyFlags overrides cfg with the command-line values and validates the
// result again. An empty addr or a negative workers leaves the setting alone.
func applyFlags(cfg config.Config, addr string, workers int) (config.Config, error) {
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if workers >= 0 {
		cfg.Scheduler.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
