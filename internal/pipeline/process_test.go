package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollreport/internal/config"
	"enrollreport/internal/publish"
	"enrollreport/internal/roster"
	"enrollreport/internal/storage"
)

func smokeFixture(t *testing.T) (string, config.Config, *storage.DB) {
	t.Helper()
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "data", "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	input := writeXLSX(t, tmp, "input_data.xlsx", exportGrid(
		exportRow(titleSelf, 1001, "Ann Lee (Finance)", "Bo Chen", "bo@example.com", "USA", "Registered - Approved", "01/03/2025 09:00", "Pat Kim", "Not Entered"),
		exportRow(titleSelf, 1001, "Ann Lee (Finance)", "Bo Chen", "bo@example.com", "USA", "Registered - Approved", "03/03/2025 09:00", "Pat Kim", "Attended"),
		exportRow(titleOthers, 1002, "Cy Park", "Dee Ray", "dee@example.com", "UK", "Registered - Approved", "21/03/2025 13:00", "Al Poe", "Attended"),
		exportRow(titleSelf, "N/A", "Unknown", "Bo Chen", "bo@example.com", "USA", "Registered - Approved", "03/03/2025 09:00", "Pat Kim", "Attended"),
	))

	cfg := config.Config{
		InputPath:  input,
		OutputDir:  filepath.Join(tmp, "out"),
		RosterPath: filepath.Join(tmp, "out", "manager_emails.xlsx"),
	}
	return input, cfg, db
}

func TestRunEndToEnd(t *testing.T) {
	_, cfg, db := smokeFixture(t)
	svc := NewRunService(db, cfg, testMapping(t), nil)
	now := time.Date(2025, 3, 24, 8, 30, 0, 0, time.UTC)

	res, err := svc.Run(context.Background(), RunOptions{Now: now})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TraceID)

	assert.Equal(t, 4, res.Counts.Loaded)
	assert.Equal(t, 1, res.Counts.DroppedColumns)
	assert.Equal(t, 1, res.Counts.InvalidIDs)
	assert.Equal(t, 1, res.Counts.DuplicatesPruned)
	assert.Equal(t, 3, res.Counts.Records)
	assert.Equal(t, 2, res.Counts.Employees)
	assert.Equal(t, 2, res.Counts.Sessions)
	assert.Equal(t, 2, res.Counts.NewManagers)

	for _, name := range []string{
		"cleaned_data_2025-03-24_083000.xlsx",
		"employee_report_2025-03-24_083000.xlsx",
		"session_report_2025-03-24_083000.xlsx",
		"new_managers_2025-03-24.xlsx",
		"manager_emails.xlsx",
	} {
		path := filepath.Join(cfg.OutputDir, name)
		assert.Contains(t, res.Outputs, path)
		_, err := os.Stat(path)
		assert.NoError(t, err, name)
	}

	employees := readSheet(t, filepath.Join(cfg.OutputDir, "employee_report_2025-03-24_083000.xlsx"))
	require.Len(t, employees, 3)
	assert.Equal(t, "Ann Lee", employees[1][1])
	assert.Equal(t, []string{"Registered", "Attended", "March 3rd", "Pat Kim"}, employees[1][9:13])

	sessions := readSheet(t, filepath.Join(cfg.OutputDir, "session_report_2025-03-24_083000.xlsx"))
	require.Len(t, sessions, 3)
	assert.Equal(t, []string{"Leading Self", titleSelf, "March 3rd", "Pat Kim", "2"}, sessions[1])
	assert.Equal(t, []string{"Leading Others", titleOthers, "March 21st", "Al Poe", "1"}, sessions[2])

	emails, err := roster.Load(cfg.RosterPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"bo@example.com", "dee@example.com"}, emails)

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunOK, runs[0].Status)
	assert.Equal(t, res.TraceID, runs[0].TraceID)
	assert.Equal(t, 3, runs[0].Counts.Records)
	assert.NotEmpty(t, runs[0].InputHash)

	// Same input again: nothing new for the roster, so it is left alone.
	again, err := svc.Run(context.Background(), RunOptions{Now: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, again.Counts.NewManagers)
	assert.False(t, again.Roster.Written())
	assert.NotContains(t, again.Outputs, cfg.RosterPath)
}

func TestRunCleanOnly(t *testing.T) {
	_, cfg, db := smokeFixture(t)
	svc := NewRunService(db, cfg, testMapping(t), nil)

	res, err := svc.Run(context.Background(), RunOptions{SkipReports: true, SkipRoster: true})
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	assert.Contains(t, filepath.Base(res.Outputs[0]), "cleaned_data_")

	_, err = os.Stat(cfg.RosterPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunRecordsFailure(t *testing.T) {
	_, cfg, db := smokeFixture(t)
	svc := NewRunService(db, cfg, testMapping(t), nil)

	_, err := svc.Run(context.Background(), RunOptions{InputPath: filepath.Join(t.TempDir(), "missing.xlsx")})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", err)
	}

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "missing.xlsx")
}

func TestRunRosterLocked(t *testing.T) {
	_, cfg, db := smokeFixture(t)
	svc := NewRunService(db, cfg, testMapping(t), nil)

	unlock, err := roster.Lock(cfg.RosterPath)
	require.NoError(t, err)
	defer func() { _ = unlock() }()

	_, err = svc.Run(context.Background(), RunOptions{})
	if !errors.Is(err, roster.ErrRosterLocked) {
		t.Fatalf("want ErrRosterLocked, got %v", err)
	}
}

func TestRunPublishesOutputs(t *testing.T) {
	_, cfg, db := smokeFixture(t)
	cfg.SFTPHost = "sftp.example.com"
	cfg.SFTPUser = "reports"
	cfg.SFTPPassword = "secret"
	cfg.SFTPRemoteDir = "/drop"
	cfg.SFTPKnownHosts = "/etc/enrollreport/known_hosts"
	svc := NewRunService(db, cfg, testMapping(t), nil)

	var sent map[string]string
	var sentCfg publish.Config
	svc.upload = func(_ context.Context, c publish.Config, files map[string]string) error {
		sentCfg = c
		sent = files
		return nil
	}

	res, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sftp.example.com", sentCfg.Host)
	assert.Equal(t, "/drop", sentCfg.RemoteDir)
	assert.Equal(t, "/etc/enrollreport/known_hosts", sentCfg.KnownHostsPath)
	assert.False(t, sentCfg.InsecureIgnoreHostKey)
	require.Len(t, sent, len(res.Outputs))
	for _, out := range res.Outputs {
		assert.Equal(t, filepath.Base(out), sent[out])
	}
}
