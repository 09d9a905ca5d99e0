package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"enrollreport/internal"
	"enrollreport/internal/config"
	"enrollreport/internal/util"
)

const (
	titleSelf   = "Leading Self: Foundations of Personal Leadership"
	titleOthers = "Leading Others: Coaching for Performance"
)

var exportHeaders = []any{
	"Training Title", "PPG ID", "Full Name", "Employee Email", "Manager", "Manager's Email",
	"Work Country", "Location", "SBU", "Job Function", "Registration Status",
	"Offering Start Date", "Instructors", "Course Attendance Status", "Language", "Cost Center",
}

// exportRow is one data row in exportHeaders order.
func exportRow(title string, id any, name, manager, managerEmail, country, regStatus, start, instructor, attendance string) []any {
	return []any{
		title, id, name, "emp@example.com", manager, managerEmail,
		country, "Pittsburgh", "Coatings", "Finance", regStatus,
		start, instructor, attendance, "English", "CC-100",
	}
}

// exportGrid prepends the banner and header rows the LMS export carries.
func exportGrid(data ...[]any) [][]any {
	rows := [][]any{{"Enrollment Export"}, exportHeaders}
	return append(rows, data...)
}

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func writeXLSX(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, mkXLSX(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mkTable(rows [][]any) *internal.Table {
	table, err := loadBlob("fixture.xlsx", mkXLSX(rows))
	if err != nil {
		panic(err)
	}
	return table
}

func testMapping(t *testing.T) *config.Mapping {
	t.Helper()
	m, err := config.LoadMapping("")
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func ts(s string) *time.Time {
	v, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &v
}

func rec(id int64, title string, status internal.AttendanceStatus, start *time.Time) internal.EnrollmentRecord {
	return internal.EnrollmentRecord{
		EmployeeID:       util.Int64Ptr(id),
		CourseTitle:      title,
		AttendanceStatus: status,
		SessionStart:     start,
	}
}
