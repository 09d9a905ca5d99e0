// Package watcher polls an inbox directory and runs the report pipeline once
// for every new enrollment export dropped into it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"enrollreport/internal/config"
	"enrollreport/internal/pipeline"
	"enrollreport/internal/roster"
	"enrollreport/internal/storage"
	"enrollreport/internal/util"
)

// LastCycleKey is the metadata key holding the end time of the last cycle.
const LastCycleKey = "watcher.last_cycle"

type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (pipeline.RunResult, error)
}

type Service struct {
	db      *storage.DB
	cfg     config.Config
	mapping *config.Mapping
	runner  Runner
	logger  *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, mapping *config.Mapping, runner Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, cfg: cfg, mapping: mapping, runner: runner, logger: logger}
}

type CycleResult struct {
	Seen      int
	Processed int
	Skipped   int
	Failed    int
	// Deferred counts inputs left unrecorded because the roster was locked.
	// They are picked up again next cycle.
	Deferred int
}

// Run polls until ctx is canceled. Cycles never overlap.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.Error("watch cycle error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("watch cycle done",
				slog.String("dir", s.cfg.WatchDir),
				slog.Int("seen", res.Seen),
				slog.Int("processed", res.Processed),
				slog.Int("skipped", res.Skipped),
				slog.Int("failed", res.Failed),
				slog.Int("deferred", res.Deferred),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle handles every supported file currently in the watch directory in
// name order. Files whose content hash is already recorded are left
// alone. A run that hit the roster lock is not recorded so the file is retried.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{}
	paths, err := s.candidates()
	if err != nil {
		return res, err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, nil
		}
		res.Seen++

		hash, err := util.HashFile(path)
		if err != nil {
			s.logger.Warn("hash input", slog.String("path", path), slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		known, err := s.db.GetInputByHash(hash)
		if err != nil {
			return res, err
		}
		if known != nil {
			continue
		}

		status, traceID, err := s.handle(ctx, path, hash)
		if errors.Is(err, roster.ErrRosterLocked) {
			s.logger.Warn("roster locked, input deferred",
				slog.String("path", path),
				slog.String("trace_id", traceID),
			)
			res.Deferred++
			continue
		}
		switch status {
		case storage.InputProcessed:
			res.Processed++
		case storage.InputSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
		if err := s.db.UpsertInput(hash, path, status, traceID); err != nil {
			return res, err
		}
	}

	_ = s.db.SetMetadata(LastCycleKey, time.Now().UTC().Format(time.RFC3339))
	return res, nil
}

// handle returns the status to record for path. err is the runner's error,
// if any.
func (s *Service) handle(ctx context.Context, path, hash string) (status, traceID string, err error) {
	table, err := pipeline.LoadTable(path)
	if err != nil {
		s.logger.Warn("load input", slog.String("path", path), slog.String("error", err.Error()))
		return storage.InputFailed, "", nil
	}

	detect := pipeline.DetectEnrollmentExport(table, s.mapping)
	if !detect.IsExport {
		s.logger.Info("not an enrollment export",
			slog.String("path", path),
			slog.Float64("score", detect.Score),
			slog.Any("missing", detect.Missing),
		)
		return storage.InputSkipped, "", nil
	}

	result, err := s.runner.Run(ctx, pipeline.RunOptions{
		InputPath: path,
		InputHash: hash,
		OutputDir: filepath.Join(s.cfg.OutputDir, outputFolder(path)),
		Table:     table,
	})
	if err != nil {
		return storage.InputFailed, result.TraceID, err
	}
	return storage.InputProcessed, result.TraceID, nil
}

func (s *Service) candidates() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("read watch dir %s: %w", s.cfg.WatchDir, err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if !pipeline.IsSupportedInput(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(s.cfg.WatchDir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// outputFolder keeps each input's reports apart; two inputs handled in the
// same second would otherwise share file names.
func outputFolder(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	stem = repl.Replace(stem)
	if len(stem) > 120 {
		stem = stem[:120]
	}
	return stem
}
