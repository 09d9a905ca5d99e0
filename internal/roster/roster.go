// Package roster keeps the persisted list of manager e-mail addresses seen
// across runs.
package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const Header = "Manager Email"

var ErrRosterLocked = errors.New("roster is locked by another run")

// Load reads the roster at path. A missing file is an empty roster.
func Load(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []string{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	out := []string{}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		// Entries are kept verbatim; Diff matches exactly.
		value := row[0]
		if value == "" || (i == 0 && value == Header) {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}

// Diff returns the entries of current that are not in existing, in the order
// they first appear in current. Matching is exact.
func Diff(existing, current []string) []string {
	known := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		known[e] = struct{}{}
	}
	out := []string{}
	for _, e := range current {
		if e == "" {
			continue
		}
		if _, ok := known[e]; ok {
			continue
		}
		known[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

type UpdateResult struct {
	New        []string
	Total      int
	NewPath    string
	MasterPath string
}

// Written reports whether Update touched any file.
func (r UpdateResult) Written() bool {
	return len(r.New) > 0
}

// Update merges the current run's manager e-mails into the roster at path.
// When anything is new it writes new_managers_<date>.xlsx into outputDir and
// replaces the roster with old + new entries. Nothing is written otherwise.
// The read-modify-write holds the roster lock.
func Update(path, outputDir string, current []string, now time.Time) (UpdateResult, error) {
	unlock, err := Lock(path)
	if err != nil {
		return UpdateResult{}, err
	}
	defer func() { _ = unlock() }()

	existing, err := Load(path)
	if err != nil {
		return UpdateResult{}, err
	}

	fresh := Diff(existing, current)
	result := UpdateResult{New: fresh, Total: len(existing)}
	if len(fresh) == 0 {
		return result, nil
	}

	result.NewPath = filepath.Join(outputDir, fmt.Sprintf("new_managers_%s.xlsx", now.Format("2006-01-02")))
	if err := Save(result.NewPath, fresh); err != nil {
		return result, fmt.Errorf("write new managers: %w", err)
	}

	merged := append(append([]string{}, existing...), fresh...)
	if err := Save(path, merged); err != nil {
		return result, fmt.Errorf("write roster: %w", err)
	}
	result.MasterPath = path
	result.Total = len(merged)
	return result, nil
}

// Save writes emails as a one-column sheet. The file is written next to the
// target and renamed into place so readers never see a partial roster.
func Save(path string, emails []string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	_ = f.SetCellValue(sheet, "A1", Header)
	for i, e := range emails {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetCellValue(sheet, cell, e)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
