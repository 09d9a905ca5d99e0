package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Enrollment Export"},
		{"Training Title", "PPG ID"},
		{"Inclusive Leadership Essentials", 12345},
	})
	rows, err := parseXLSX(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[2][1] != "12345" {
		t.Fatalf("id cell=%q", rows[2][1])
	}
}

func TestLoadTableXLSX(t *testing.T) {
	path := writeXLSX(t, t.TempDir(), "input_data.xlsx", exportGrid(
		exportRow(titleSelf, 1001, "Ann Lee", "Bo Chen", "bo@example.com", "USA", "Registered", "03/03/2025 09:00", "Pat Kim", "Attended"),
	))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, path, table.Source)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Training Title", table.Rows[1][0])
}

func TestLoadTableHTMLExport(t *testing.T) {
	html := `<html><body><table>
<tr><td>Enrollment Export</td></tr>
<tr><th>Training Title</th><th>PPG ID</th><th>Full  Name</th></tr>
<tr><td>Inclusive Leadership Essentials</td><td>1001</td><td> Ann   Lee </td></tr>
</table></body></html>`
	path := filepath.Join(t.TempDir(), "export.xls")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"Training Title", "PPG ID", "Full Name"}, table.Rows[1])
	assert.Equal(t, "Ann Lee", table.Rows[2][2])
}

func TestLoadTableEmailAttachment(t *testing.T) {
	blob := mkXLSX(exportGrid(
		exportRow(titleSelf, 1001, "Ann Lee", "Bo Chen", "bo@example.com", "USA", "Registered", "03/03/2025 09:00", "Pat Kim", "Attended"),
	))
	var raw bytes.Buffer
	raw.WriteString("From: LMS <lms@example.com>\r\n")
	raw.WriteString("To: reports@example.com\r\n")
	raw.WriteString("Subject: Weekly enrollment export\r\n")
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: multipart/mixed; boundary=\"b1\"\r\n\r\n")
	raw.WriteString("--b1\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nExport attached.\r\n")
	raw.WriteString("--b1\r\nContent-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n")
	raw.WriteString("Content-Disposition: attachment; filename=\"enrollments.xlsx\"\r\n")
	raw.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	raw.WriteString(base64.StdEncoding.EncodeToString(blob))
	raw.WriteString("\r\n--b1--\r\n")

	path := filepath.Join(t.TempDir(), "export.eml")
	require.NoError(t, os.WriteFile(path, raw.Bytes(), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, titleSelf, table.Rows[2][0])
}

func TestLoadTableFailures(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,b\n1,2\n"), 0o644))

	cases := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.xlsx")},
		{name: "unsupported type", path: csv},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTable(tc.path)
			if !errors.Is(err, ErrNoData) {
				t.Fatalf("want ErrNoData, got %v", err)
			}
		})
	}
}

func TestIsSupportedInput(t *testing.T) {
	for name, want := range map[string]bool{
		"a.xlsx": true, "a.XLS": true, "a.html": true, "a.eml": true,
		"a.csv": false, "a.pdf": false, "a": false,
	} {
		assert.Equal(t, want, IsSupportedInput(name), name)
	}
}
