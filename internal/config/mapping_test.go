package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultMapping(t *testing.T) {
	m, err := LoadMapping("")
	require.NoError(t, err)

	assert.Len(t, m.DropColumns, 19)
	assert.Len(t, m.Catalog, 6)
	assert.Equal(t, "Leading Self", m.Catalog[0].Label)
	assert.Equal(t, "Registered", m.Synonyms["registration_status"]["Registered - Approved"])
	required := []string{}
	for _, c := range m.Columns {
		if c.Required {
			required = append(required, c.Source)
		}
	}
	assert.ElementsMatch(t, []string{
		"Training Title", "PPG ID", "Full Name", "Manager's Email", "Offering Start Date", "Course Attendance Status",
	}, required)
}

func TestLoadMappingFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	blob := `
drop_columns: ["  Language  "]
columns:
  - {source: " Training Title ", key: course_title, required: true}
  - {source: PPG ID, key: ppg_id, required: true}
  - {source: Offering Start Date, key: session_start}
  - {source: Course Attendance Status, key: attendance_status}
catalog:
  - {title: "Intro Course", label: " Intro "}
`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Language"}, m.DropColumns)
	assert.Equal(t, "Training Title", m.Columns[0].Source)
	assert.Equal(t, "Intro", m.Catalog[0].Label)
}

func TestLoadMappingMissingFile(t *testing.T) {
	_, err := LoadMapping(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read mapping") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMapping(t *testing.T) {
	base := func() *Mapping {
		m, err := ParseMapping(defaultMappingYAML)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	cases := []struct {
		name   string
		mutate func(m *Mapping)
		want   string
	}{
		{name: "empty catalog", mutate: func(m *Mapping) { m.Catalog = nil }, want: "catalog is empty"},
		{name: "duplicate label", mutate: func(m *Mapping) { m.Catalog[1].Label = m.Catalog[0].Label }, want: "listed twice"},
		{name: "duplicate title", mutate: func(m *Mapping) { m.Catalog[1].Title = m.Catalog[0].Title }, want: "listed twice"},
		{name: "blank catalog label", mutate: func(m *Mapping) { m.Catalog[0].Label = "" }, want: "title and label are required"},
		{name: "duplicate source", mutate: func(m *Mapping) { m.Columns[1].Source = m.Columns[0].Source }, want: "mapped twice"},
		{name: "duplicate key", mutate: func(m *Mapping) { m.Columns[2].Key = m.Columns[3].Key }, want: "target of two columns"},
		{name: "no id column", mutate: func(m *Mapping) { m.Columns = m.Columns[2:] }, want: `"ppg_id"`},
		{name: "dropped and renamed", mutate: func(m *Mapping) { m.DropColumns = append(m.DropColumns, "PPG ID") }, want: "both dropped and renamed"},
		{name: "unknown synonym field", mutate: func(m *Mapping) { m.Synonyms["shoe_size"] = map[string]string{"a": "b"} }, want: "unknown field"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := base()
			tc.mutate(m)
			err := ValidateMapping(m)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}

	require.NoError(t, ValidateMapping(base()))
	require.Error(t, ValidateMapping(nil))
}

func TestParseMappingRejectsBadYAML(t *testing.T) {
	_, err := ParseMapping([]byte("columns: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse mapping")
}
