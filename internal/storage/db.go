package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"enrollreport/internal"
)

const (
	InputProcessed = "processed"
	InputSkipped   = "skipped"
	InputFailed    = "failed"

	RunOK     = "ok"
	RunFailed = "failed"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  inputPath TEXT NOT NULL,
  inputHash TEXT,
  status TEXT NOT NULL,
  error TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  outputsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_inputHash ON runs(inputHash);

CREATE TABLE IF NOT EXISTS inputs (
  hash TEXT PRIMARY KEY,
  path TEXT NOT NULL,
  status TEXT NOT NULL,
  traceId TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

type RunRecord struct {
	TraceID   string
	InputPath string
	InputHash string
	Status    string
	Error     string
	Timings   map[string]float64
	Counts    internal.RunCounts
	Outputs   []string
}

func (d *DB) InsertRun(run RunRecord) error {
	timingsJSON, _ := json.Marshal(run.Timings)
	countsJSON, _ := json.Marshal(run.Counts)
	outputsJSON, _ := json.Marshal(run.Outputs)
	_, err := d.conn.Exec(`
INSERT INTO runs (traceId, inputPath, inputHash, status, error, timingsJson, countsJson, outputsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, run.InputPath, nullable(run.InputHash), run.Status, nullable(run.Error), string(timingsJSON), string(countsJSON), string(outputsJSON))
	return err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, inputPath, inputHash, status, error, timingsJson, countsJson, outputsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var inputHash, runErr sql.NullString
		var timingsJSON, countsJSON, outputsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.InputPath, &inputHash, &row.Status, &runErr, &timingsJSON, &countsJSON, &outputsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.InputHash = inputHash.String
		row.Error = runErr.String

		var timings map[string]float64
		_ = json.Unmarshal([]byte(timingsJSON), &timings)
		row.TotalMs = timings["totalMs"]
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		_ = json.Unmarshal([]byte(outputsJSON), &row.Outputs)
		out = append(out, row)
	}
	return out, rows.Err()
}

type InputRow struct {
	Hash    string
	Path    string
	Status  string
	TraceID string
}

func (d *DB) UpsertInput(hash, path, status, traceID string) error {
	_, err := d.conn.Exec(`
INSERT INTO inputs (hash, path, status, traceId) VALUES (?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
  path=excluded.path,
  status=excluded.status,
  traceId=excluded.traceId,
  updatedAt=CURRENT_TIMESTAMP
`, hash, path, status, nullable(traceID))
	return err
}

func (d *DB) GetInputByHash(hash string) (*InputRow, error) {
	var row InputRow
	var traceID sql.NullString
	err := d.conn.QueryRow(`SELECT hash, path, status, traceId FROM inputs WHERE hash = ?`, hash).Scan(&row.Hash, &row.Path, &row.Status, &traceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.TraceID = traceID.String
	return &row, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
