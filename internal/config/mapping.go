package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"enrollreport/internal"
)

//go:embed default_mapping.yaml
var defaultMappingYAML []byte

// Mapping is the column and catalog configuration the normalizer and the
// report builder run against. It is data, not logic: every list here can be
// changed by pointing MAPPING_PATH at another file.
type Mapping struct {
	DropColumns []string                     `yaml:"drop_columns"`
	Columns     []ColumnMapping              `yaml:"columns"`
	Synonyms    map[string]map[string]string `yaml:"synonyms"`
	Catalog     []CourseModule               `yaml:"catalog"`
}

type ColumnMapping struct {
	Source   string `yaml:"source"`
	Key      string `yaml:"key"`
	Required bool   `yaml:"required"`
}

type CourseModule struct {
	Title string `yaml:"title"`
	Label string `yaml:"label"`
}

// LoadMapping reads the mapping file at path, or the embedded default when
// path is empty. The result is validated and normalized.
func LoadMapping(path string) (*Mapping, error) {
	blob := defaultMappingYAML
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mapping %s: %w", path, err)
		}
		blob = data
	}
	return ParseMapping(blob)
}

func ParseMapping(blob []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	NormalizeMapping(&m)
	if err := ValidateMapping(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// NormalizeMapping trims whitespace from every configured string.
// Must run before ValidateMapping so duplicate detection sees trimmed values.
func NormalizeMapping(m *Mapping) {
	if m == nil {
		return
	}
	for i := range m.DropColumns {
		m.DropColumns[i] = strings.TrimSpace(m.DropColumns[i])
	}
	for i := range m.Columns {
		m.Columns[i].Source = strings.TrimSpace(m.Columns[i].Source)
		m.Columns[i].Key = strings.TrimSpace(m.Columns[i].Key)
	}
	for i := range m.Catalog {
		m.Catalog[i].Title = strings.TrimSpace(m.Catalog[i].Title)
		m.Catalog[i].Label = strings.TrimSpace(m.Catalog[i].Label)
	}
	for field, table := range m.Synonyms {
		trimmed := make(map[string]string, len(table))
		for from, to := range table {
			trimmed[strings.TrimSpace(from)] = strings.TrimSpace(to)
		}
		m.Synonyms[field] = trimmed
	}
}

// ValidateMapping checks the mapping without mutating it.
func ValidateMapping(m *Mapping) error {
	if m == nil {
		return fmt.Errorf("mapping is nil")
	}

	// ---- columns ----

	sources := map[string]struct{}{}
	keys := map[string]struct{}{}
	for _, c := range m.Columns {
		if c.Source == "" || c.Key == "" {
			return fmt.Errorf("column mapping %q -> %q: source and key are required", c.Source, c.Key)
		}
		if _, dup := sources[c.Source]; dup {
			return fmt.Errorf("column %q is mapped twice", c.Source)
		}
		if _, dup := keys[c.Key]; dup {
			return fmt.Errorf("key %q is the target of two columns", c.Key)
		}
		sources[c.Source] = struct{}{}
		keys[c.Key] = struct{}{}
	}
	for _, key := range []string{internal.KeyPPGID, internal.KeyCourseTitle, internal.KeyAttendanceStatus, internal.KeySessionStart} {
		if _, ok := keys[key]; !ok {
			return fmt.Errorf("no column is mapped to %q", key)
		}
	}
	for _, drop := range m.DropColumns {
		if _, ok := sources[drop]; ok {
			return fmt.Errorf("column %q is both dropped and renamed", drop)
		}
	}

	// ---- synonyms ----

	for field := range m.Synonyms {
		if !internal.IsRecordKey(field) {
			return fmt.Errorf("synonyms for unknown field %q", field)
		}
	}

	// ---- catalog ----

	if len(m.Catalog) == 0 {
		return fmt.Errorf("course catalog is empty")
	}
	titles := map[string]struct{}{}
	labels := map[string]struct{}{}
	for _, mod := range m.Catalog {
		if mod.Title == "" || mod.Label == "" {
			return fmt.Errorf("catalog entry %q -> %q: title and label are required", mod.Title, mod.Label)
		}
		if _, dup := titles[mod.Title]; dup {
			return fmt.Errorf("catalog title %q listed twice", mod.Title)
		}
		if _, dup := labels[mod.Label]; dup {
			return fmt.Errorf("catalog label %q listed twice", mod.Label)
		}
		titles[mod.Title] = struct{}{}
		labels[mod.Label] = struct{}{}
	}

	return nil
}
