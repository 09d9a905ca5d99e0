package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"enrollreport/internal"
)

// excelize built-in number format "m/d/yy h:mm".
const dateTimeNumFmt = 22

// ReportFileName builds "<prefix>_<YYYY-MM-DD>_<HHMMSS>.xlsx".
func ReportFileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("2006-01-02_150405"))
}

// ExportCleanedXLSX writes the full normalized table. It streams rows since
// the cleaned table is the one output that grows with the input.
func ExportCleanedXLSX(records []internal.EnrollmentRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: dateTimeNumFmt})
	if err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	headers := make([]any, 0, len(internal.RecordKeys))
	for _, k := range internal.RecordKeys {
		headers = append(headers, k)
	}
	if len(records) > 0 {
		for _, extra := range records[0].Extra {
			headers = append(headers, extra.Name)
		}
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, rec := range records {
		values := make([]any, 0, len(headers))
		for _, key := range internal.RecordKeys {
			switch key {
			case internal.KeyPPGID:
				values = append(values, derefInt64(rec.EmployeeID))
			case internal.KeySessionStart:
				if rec.SessionStart == nil {
					values = append(values, "")
				} else {
					values = append(values, excelize.Cell{Value: *rec.SessionStart, StyleID: dateStyle})
				}
			default:
				text, _ := rec.Text(key)
				values = append(values, text)
			}
		}
		for _, extra := range rec.Extra {
			values = append(values, extra.Value)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return saveAs(f, outputPath)
}

func ExportEmployeeReport(headers []string, rows []internal.EmployeeSummaryRow, outputPath string) error {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		line := []any{
			row.EmployeeID, row.FullName, row.EmployeeEmail, row.Manager, row.ManagerEmail,
			row.WorkCountry, row.Location, row.SBU, row.JobFunction,
		}
		for _, m := range row.Modules {
			line = append(line, m.Status, m.Attendance, m.Date, m.Facilitator)
		}
		values = append(values, line)
	}
	return writeSheet(headers, values, outputPath)
}

func ExportSessionReport(rows []internal.SessionSummaryRow, outputPath string) error {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, []any{row.Module, row.CourseTitle, row.SessionDate, row.Instructor, row.Enrolled})
	}
	return writeSheet(sessionHeaders, values, outputPath)
}

func writeSheet(headers []string, rows [][]any, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		r := i + 2
		for c, value := range row {
			if s, ok := value.(string); ok && s == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	return saveAs(f, outputPath)
}

func saveAs(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefInt64(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
