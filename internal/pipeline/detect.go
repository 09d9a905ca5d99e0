package pipeline

import (
	"enrollreport/internal"
	"enrollreport/internal/config"
	"enrollreport/internal/util"
)

type DetectResult struct {
	IsExport bool
	Score    float64
	Missing  []string
	Reason   string
}

// DetectEnrollmentExport scores the header row (row 1) of a raw table against
// the mapping. A table is an export when every required column is present and
// at least half of the mapped columns are.
func DetectEnrollmentExport(table *internal.Table, mapping *config.Mapping) DetectResult {
	if table == nil || len(table.Rows) < 2 || len(mapping.Columns) == 0 {
		return DetectResult{Reason: "rules_negative"}
	}

	headers := map[string]struct{}{}
	for _, h := range table.Rows[1] {
		headers[util.NormalizeHeader(h)] = struct{}{}
	}

	hits := 0
	missing := []string{}
	for _, c := range mapping.Columns {
		_, bySource := headers[util.NormalizeHeader(c.Source)]
		_, byKey := headers[c.Key]
		if bySource || byKey {
			hits++
			continue
		}
		if c.Required {
			missing = append(missing, c.Source)
		}
	}

	score := float64(hits) / float64(len(mapping.Columns))
	isExport := len(missing) == 0 && score >= 0.5
	reason := "rules_negative"
	if isExport {
		reason = "rules_positive"
	}
	return DetectResult{IsExport: isExport, Score: score, Missing: missing, Reason: reason}
}
