package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"enrollreport/internal/config"
	"enrollreport/internal/logging"
	"enrollreport/internal/pipeline"
	"enrollreport/internal/roster"
	"enrollreport/internal/storage"
	"enrollreport/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	cmd := os.Args[1]
	switch cmd {
	case "run", "clean":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", cfg.InputPath, "input export (.xlsx, .xls, .html, .eml)")
		outputDir := fs.String("output-dir", cfg.OutputDir, "output directory")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		mapping, err := config.LoadMapping(cfg.MappingPath)
		must(err)
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		svc := pipeline.NewRunService(db, cfg, mapping, logger)
		opts := pipeline.RunOptions{InputPath: *input, OutputDir: *outputDir}
		if cmd == "clean" {
			opts.SkipReports = true
			opts.SkipRoster = true
		}
		res, err := svc.Run(ctx, opts)
		must(err)
		fmt.Printf("%s done trace=%s records=%d employees=%d sessions=%d new_managers=%d\n",
			cmd, res.TraceID, res.Counts.Records, res.Counts.Employees, res.Counts.Sessions, res.Counts.NewManagers)
		for _, out := range res.Outputs {
			fmt.Printf("  %s\n", out)
		}
	case "roster":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		path := fs.String("path", cfg.RosterPath, "roster xlsx path")
		_ = fs.Parse(os.Args[2:])
		emails, err := roster.Load(*path)
		must(err)
		for _, e := range emails {
			fmt.Println(e)
		}
		fmt.Printf("roster %s: %d manager emails\n", *path, len(emails))
	case "history":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		last, err := db.GetMetadata(watcher.LastCycleKey)
		must(err)
		if last != nil {
			fmt.Println("last watch cycle:", *last)
		}
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			line := fmt.Sprintf("%s %s status=%s records=%d employees=%d sessions=%d new_managers=%d total_ms=%.0f input=%s",
				r.CreatedAt, r.TraceID, r.Status, r.Counts.Records, r.Counts.Employees, r.Counts.Sessions, r.Counts.NewManagers, r.TotalMs, r.InputPath)
			if r.Error != "" {
				line += " error=" + r.Error
			}
			fmt.Println(line)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: enrollreport <command>")
	fmt.Println("commands:")
	fmt.Println("  run [--input=input_data.xlsx] [--output-dir=out]")
	fmt.Println("  clean [--input=input_data.xlsx] [--output-dir=out]")
	fmt.Println("  roster [--path=out/manager_emails.xlsx]")
	fmt.Println("  history [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
