package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"enrollreport/internal"
	"enrollreport/internal/catalog"
	"enrollreport/internal/config"
	"enrollreport/internal/logging"
	"enrollreport/internal/publish"
	"enrollreport/internal/roster"
	"enrollreport/internal/storage"
	"enrollreport/internal/util"
)

// RunService wires the pipeline stages together and records each run.
type RunService struct {
	db      *storage.DB
	cfg     config.Config
	mapping *config.Mapping
	catalog *catalog.Index
	logger  *slog.Logger

	// upload is swapped in tests.
	upload func(ctx context.Context, cfg publish.Config, files map[string]string) error
}

// NewRunService builds a service. db may be nil, in which case runs are not
// recorded.
func NewRunService(db *storage.DB, cfg config.Config, mapping *config.Mapping, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		db:      db,
		cfg:     cfg,
		mapping: mapping,
		catalog: catalog.BuildIndex(mapping.Catalog),
		logger:  logger,
		upload:  publish.UploadAll,
	}
}

type RunOptions struct {
	InputPath string
	OutputDir string
	Now       time.Time

	// Table, when set, is used instead of loading InputPath.
	Table *internal.Table

	// InputHash is the content hash of InputPath when the caller already has it.
	InputHash string

	SkipReports bool
	SkipRoster  bool
}

type RunResult struct {
	TraceID string
	Counts  internal.RunCounts
	Outputs []string
	Roster  roster.UpdateResult
}

// Run executes load → normalize → export cleaned → dedupe → session dates →
// reports → roster update, then optionally publishes the outputs. The run is
// recorded whether it succeeds or not.
func (s *RunService) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	start := time.Now()
	if opts.Now.IsZero() {
		opts.Now = start
	}
	if opts.InputPath == "" {
		opts.InputPath = s.cfg.InputPath
	}
	if opts.OutputDir == "" {
		opts.OutputDir = s.cfg.OutputDir
	}

	result := RunResult{TraceID: uuid.NewString()}
	ctx = logging.WithTraceID(ctx, result.TraceID)
	timings := map[string]float64{}

	if opts.InputHash == "" && opts.Table == nil {
		if h, err := util.HashFile(opts.InputPath); err == nil {
			opts.InputHash = h
		}
	}

	err := s.run(ctx, opts, &result, timings)
	timings["totalMs"] = float64(time.Since(start).Milliseconds())

	status, errText := storage.RunOK, ""
	if err != nil {
		status, errText = storage.RunFailed, err.Error()
		s.logger.ErrorContext(ctx, "run failed", slog.String("input", opts.InputPath), slog.String("error", errText))
	} else {
		s.logger.InfoContext(ctx, "run finished",
			slog.String("input", opts.InputPath),
			slog.Int("records", result.Counts.Records),
			slog.Int("employees", result.Counts.Employees),
			slog.Int("sessions", result.Counts.Sessions),
			slog.Int("new_managers", result.Counts.NewManagers),
			slog.Float64("total_ms", timings["totalMs"]),
		)
	}

	if s.db != nil {
		recErr := s.db.InsertRun(storage.RunRecord{
			TraceID:   result.TraceID,
			InputPath: opts.InputPath,
			InputHash: opts.InputHash,
			Status:    status,
			Error:     errText,
			Timings:   timings,
			Counts:    result.Counts,
			Outputs:   result.Outputs,
		})
		if recErr != nil {
			s.logger.WarnContext(ctx, "record run", slog.String("error", recErr.Error()))
		}
	}
	return result, err
}

func (s *RunService) run(ctx context.Context, opts RunOptions, result *RunResult, timings map[string]float64) error {
	stage := func(name string, t0 time.Time) {
		timings[name+"Ms"] = float64(time.Since(t0).Milliseconds())
	}

	t0 := time.Now()
	table := opts.Table
	if table == nil {
		var err error
		table, err = LoadTable(opts.InputPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", opts.InputPath, err)
		}
	}
	stage("load", t0)

	t0 = time.Now()
	records, summary, err := NewNormalizer(s.mapping, s.logger).Normalize(ctx, table)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	result.Counts.Loaded = summary.Rows
	result.Counts.DroppedColumns = len(summary.DroppedColumns)
	result.Counts.InvalidIDs = summary.InvalidIDs
	result.Counts.InvalidDates = summary.InvalidDates
	stage("normalize", t0)

	if err := ctx.Err(); err != nil {
		return err
	}

	cleanedPath := filepath.Join(opts.OutputDir, ReportFileName("cleaned_data", opts.Now))
	if err := ExportCleanedXLSX(records, cleanedPath); err != nil {
		return fmt.Errorf("export cleaned data: %w", err)
	}
	result.Outputs = append(result.Outputs, cleanedPath)

	t0 = time.Now()
	records, pruned := Deduplicate(records)
	result.Counts.DuplicatesPruned = pruned
	result.Counts.Records = len(records)
	ApplySessionDates(records)
	stage("dedupe", t0)

	if !opts.SkipReports {
		t0 = time.Now()
		builder := NewReportBuilder(s.catalog, s.logger)

		employees := builder.EmployeeReport(ctx, records)
		employeePath := filepath.Join(opts.OutputDir, ReportFileName("employee_report", opts.Now))
		if err := ExportEmployeeReport(builder.EmployeeHeaders(), employees, employeePath); err != nil {
			return fmt.Errorf("export employee report: %w", err)
		}
		result.Counts.Employees = len(employees)
		result.Outputs = append(result.Outputs, employeePath)

		sessions := builder.SessionReport(records)
		sessionPath := filepath.Join(opts.OutputDir, ReportFileName("session_report", opts.Now))
		if err := ExportSessionReport(sessions, sessionPath); err != nil {
			return fmt.Errorf("export session report: %w", err)
		}
		result.Counts.Sessions = len(sessions)
		result.Outputs = append(result.Outputs, sessionPath)
		stage("reports", t0)
	}

	if !opts.SkipRoster {
		t0 = time.Now()
		rosterPath := s.cfg.RosterPath
		if rosterPath == "" {
			rosterPath = filepath.Join(opts.OutputDir, "manager_emails.xlsx")
		}
		upd, err := roster.Update(rosterPath, opts.OutputDir, ManagerEmails(records), opts.Now)
		if err != nil {
			return fmt.Errorf("update roster: %w", err)
		}
		result.Roster = upd
		result.Counts.NewManagers = len(upd.New)
		if upd.Written() {
			result.Outputs = append(result.Outputs, upd.NewPath, upd.MasterPath)
			s.logger.InfoContext(ctx, "roster updated", slog.Int("new", len(upd.New)), slog.Int("total", upd.Total))
		} else {
			s.logger.InfoContext(ctx, "no new manager emails")
		}
		stage("roster", t0)
	}

	if s.cfg.PublishEnabled() {
		t0 = time.Now()
		if err := s.publish(ctx, result.Outputs); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		stage("publish", t0)
	}
	return nil
}

func (s *RunService) publish(ctx context.Context, outputs []string) error {
	files := make(map[string]string, len(outputs))
	for _, p := range outputs {
		files[p] = filepath.Base(p)
	}
	cfg := publish.Config{
		Host:                  s.cfg.SFTPHost,
		Port:                  s.cfg.SFTPPort,
		User:                  s.cfg.SFTPUser,
		Pass:                  s.cfg.SFTPPassword,
		RemoteDir:             s.cfg.SFTPRemoteDir,
		KnownHostsPath:        s.cfg.SFTPKnownHosts,
		InsecureIgnoreHostKey: s.cfg.SFTPInsecure,
	}
	if err := s.upload(ctx, cfg, files); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "published outputs", slog.Int("files", len(files)), slog.String("host", cfg.Host))
	return nil
}
