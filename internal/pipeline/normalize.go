package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"enrollreport/internal"
	"enrollreport/internal/config"
	"enrollreport/internal/util"
)

// SessionStartLayout is the export's "Offering Start Date" format.
const SessionStartLayout = "02/01/2006 15:04"

var sessionStartLayouts = []string{
	SessionStartLayout,
	"2/1/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

type NormalizeSummary struct {
	Rows               int
	DroppedColumns     []string
	MissingDropColumns []string
	RemainingColumns   []string
	InvalidIDs         int
	InvalidDates       int

	// IDColumnIntegral is true when every row carries a numeric employee id,
	// i.e. the id column could be cast to a plain integer column.
	IDColumnIntegral bool
}

type Normalizer struct {
	mapping *config.Mapping
	logger  *slog.Logger
}

func NewNormalizer(mapping *config.Mapping, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{mapping: mapping, logger: logger}
}

type columnPlan struct {
	index int
	name  string
	key   string // empty for passthrough columns
}

// Normalize turns the raw grid into enrollment records. Row 0 is the export
// banner and row 1 the real header row; data starts at row 2.
func (n *Normalizer) Normalize(ctx context.Context, table *internal.Table) ([]internal.EnrollmentRecord, NormalizeSummary, error) {
	summary := NormalizeSummary{}
	if table == nil || len(table.Rows) < 2 {
		return nil, summary, fmt.Errorf("%w: table has no header row", ErrNoData)
	}

	headers := make([]string, len(table.Rows[1]))
	for i, h := range table.Rows[1] {
		headers[i] = util.NormalizeSpaces(h)
	}

	plan, err := n.planColumns(headers, &summary)
	if err != nil {
		return nil, summary, err
	}

	records := make([]internal.EnrollmentRecord, 0, len(table.Rows)-2)
	for _, row := range table.Rows[2:] {
		if isBlankRow(row) {
			continue
		}
		rec := internal.EnrollmentRecord{RowNo: len(records)}
		for _, col := range plan {
			value := strings.TrimSpace(cellAt(row, col.index))
			switch col.key {
			case "":
				rec.Extra = append(rec.Extra, internal.ExtraColumn{Name: col.name, Value: value})
			case internal.KeyPPGID:
				if id, ok := util.ParseEmployeeID(value); ok {
					rec.EmployeeID = &id
				} else {
					summary.InvalidIDs++
					n.logger.WarnContext(ctx, "employee id is not numeric", slog.Int("row", rec.RowNo), slog.String("value", value))
				}
			case internal.KeySessionStart:
				if value == "" {
					break
				}
				if ts, ok := ParseSessionStart(value); ok {
					rec.SessionStart = &ts
				} else {
					summary.InvalidDates++
					n.logger.WarnContext(ctx, "session start is not a date", slog.Int("row", rec.RowNo), slog.String("value", value))
				}
			default:
				rec.SetText(col.key, value)
			}
		}
		n.applySynonyms(&rec)
		records = append(records, rec)
	}

	summary.Rows = len(records)
	summary.IDColumnIntegral = summary.InvalidIDs == 0

	n.logger.InfoContext(ctx, "cleaning summary",
		slog.Int("rows", summary.Rows),
		slog.Int("columns", len(summary.RemainingColumns)),
		slog.Any("dropped", summary.DroppedColumns),
		slog.Any("remaining", summary.RemainingColumns),
		slog.Int("invalid_ids", summary.InvalidIDs),
		slog.Int("invalid_dates", summary.InvalidDates),
		slog.Bool("id_integral", summary.IDColumnIntegral),
	)
	if len(summary.MissingDropColumns) > 0 {
		n.logger.WarnContext(ctx, "configured drop columns not in input", slog.Any("columns", summary.MissingDropColumns))
	}

	return records, summary, nil
}

func (n *Normalizer) planColumns(headers []string, summary *NormalizeSummary) ([]columnPlan, error) {
	drop := map[string]struct{}{}
	for _, c := range n.mapping.DropColumns {
		drop[c] = struct{}{}
	}
	bySource := map[string]string{}
	byKey := map[string]string{}
	for _, c := range n.mapping.Columns {
		bySource[c.Source] = c.Key
		byKey[c.Key] = c.Key
	}

	present := map[string]struct{}{}
	seenKeys := map[string]struct{}{}
	plan := []columnPlan{}
	for i, h := range headers {
		if h == "" {
			continue
		}
		present[h] = struct{}{}
		if _, ok := drop[h]; ok {
			summary.DroppedColumns = append(summary.DroppedColumns, h)
			continue
		}
		key, ok := bySource[h]
		if !ok {
			// Already-normalized input carries the canonical keys as headers.
			key, ok = byKey[h]
		}
		if ok {
			if _, dup := seenKeys[key]; dup {
				return nil, fmt.Errorf("column %q maps to %q twice", h, key)
			}
			seenKeys[key] = struct{}{}
			plan = append(plan, columnPlan{index: i, name: key, key: key})
			summary.RemainingColumns = append(summary.RemainingColumns, key)
			continue
		}
		plan = append(plan, columnPlan{index: i, name: h})
		summary.RemainingColumns = append(summary.RemainingColumns, h)
	}

	for _, c := range n.mapping.DropColumns {
		if _, ok := present[c]; !ok {
			summary.MissingDropColumns = append(summary.MissingDropColumns, c)
		}
	}

	missing := []string{}
	for _, c := range n.mapping.Columns {
		if !c.Required {
			continue
		}
		if _, ok := seenKeys[c.Key]; !ok {
			missing = append(missing, c.Source)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return plan, nil
}

func (n *Normalizer) applySynonyms(rec *internal.EnrollmentRecord) {
	for field, table := range n.mapping.Synonyms {
		value, ok := rec.Text(field)
		if !ok {
			continue
		}
		if canonical, found := table[value]; found {
			rec.SetText(field, canonical)
		}
	}
}

// ParseSessionStart accepts the export's day/month/year layout, a few ISO
// variants and Excel serial numbers.
func ParseSessionStart(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range sessionStartLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return ts.Round(time.Minute), true
		}
	}
	return time.Time{}, false
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
