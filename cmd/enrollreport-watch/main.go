package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"enrollreport/internal/config"
	"enrollreport/internal/logging"
	"enrollreport/internal/pipeline"
	"enrollreport/internal/storage"
	"enrollreport/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("WATCH_DIR", cfg.WatchDir))

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	mapping, err := config.LoadMapping(cfg.MappingPath)
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	runner := pipeline.NewRunService(db, cfg, mapping, logger)
	svc := watcher.NewService(db, cfg, mapping, runner, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("watching", "dir", cfg.WatchDir, "interval_sec", cfg.WatchIntervalSec, "publish", cfg.PublishEnabled())
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
