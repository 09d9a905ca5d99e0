package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"enrollreport/internal"
	"enrollreport/internal/catalog"
	"enrollreport/internal/util"
)

var employeeIdentityHeaders = []string{
	"PPG ID", "Full Name", "Employee Email", "Manager", "Manager's Email",
	"Work Country", "Location", "SBU", "Job Function",
}

var sessionHeaders = []string{"Module", "Course Title", "Session Date", "Instructor", "Enrolled"}

type ReportBuilder struct {
	catalog *catalog.Index
	logger  *slog.Logger
}

func NewReportBuilder(idx *catalog.Index, logger *slog.Logger) *ReportBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportBuilder{catalog: idx, logger: logger}
}

// EmployeeHeaders is the employee report column order: the identity block,
// then four columns per catalog module in catalog order.
func (b *ReportBuilder) EmployeeHeaders() []string {
	out := append([]string{}, employeeIdentityHeaders...)
	for _, m := range b.catalog.Modules {
		out = append(out,
			m.Label+" Status",
			m.Label+" Attendance",
			m.Label+" Date",
			m.Label+" Facilitator",
		)
	}
	return out
}

type moduleKey struct {
	employeeID int64
	module     int
}

// EmployeeReport emits one row per employee id in first-appearance order.
// Records are indexed once by employee and by (employee, module); modules the
// employee never took stay empty.
func (b *ReportBuilder) EmployeeReport(ctx context.Context, records []internal.EnrollmentRecord) []internal.EmployeeSummaryRow {
	order := []int64{}
	first := map[int64]int{}
	cells := map[moduleKey]int{}
	skipped := 0
	unmapped := map[string]int{}

	for i, rec := range records {
		if !rec.Valid() {
			skipped++
			continue
		}
		id := *rec.EmployeeID
		if _, ok := first[id]; !ok {
			first[id] = i
			order = append(order, id)
		}
		mod, ok := b.catalog.Lookup(rec.CourseTitle)
		if !ok {
			unmapped[rec.CourseTitle]++
			continue
		}
		key := moduleKey{employeeID: id, module: mod}
		if _, taken := cells[key]; !taken {
			cells[key] = i
		}
	}

	if skipped > 0 {
		b.logger.WarnContext(ctx, "records without employee id left out of employee report", slog.Int("count", skipped))
	}
	if len(unmapped) > 0 {
		b.logger.InfoContext(ctx, "course titles outside the catalog", slog.Any("titles", unmapped))
	}

	out := make([]internal.EmployeeSummaryRow, 0, len(order))
	for _, id := range order {
		ident := records[first[id]]
		row := internal.EmployeeSummaryRow{
			EmployeeID:    id,
			FullName:      util.CleanName(ident.FullName),
			EmployeeEmail: ident.EmployeeEmail,
			Manager:       ident.Manager,
			ManagerEmail:  ident.ManagerEmail,
			WorkCountry:   ident.WorkCountry,
			Location:      ident.Location,
			SBU:           ident.SBU,
			JobFunction:   ident.JobFunction,
			Modules:       make([]internal.ModuleCells, b.catalog.Len()),
		}
		for mod := range row.Modules {
			i, ok := cells[moduleKey{employeeID: id, module: mod}]
			if !ok {
				continue
			}
			rec := records[i]
			row.Modules[mod] = internal.ModuleCells{
				Status:      rec.RegistrationStatus,
				Attendance:  string(rec.AttendanceStatus),
				Date:        rec.SessionDate,
				Facilitator: rec.Instructors,
			}
		}
		out = append(out, row)
	}
	return out
}

type sessionKey struct {
	courseTitle string
	sessionDate string
	instructor  string
}

type sessionGroup struct {
	row      internal.SessionSummaryRow
	earliest *time.Time
}

// SessionReport groups records by (course title, session date, instructor)
// and counts the rows in each group. Titles outside the catalog keep an empty
// module label. Rows are ordered by the calendar day of the group's earliest
// session start, then module label, then course title.
func (b *ReportBuilder) SessionReport(records []internal.EnrollmentRecord) []internal.SessionSummaryRow {
	groups := map[sessionKey]*sessionGroup{}
	order := []*sessionGroup{}

	for _, rec := range records {
		key := sessionKey{courseTitle: rec.CourseTitle, sessionDate: rec.SessionDate, instructor: rec.Instructors}
		g, ok := groups[key]
		if !ok {
			g = &sessionGroup{row: internal.SessionSummaryRow{
				Module:      b.catalog.Label(rec.CourseTitle),
				CourseTitle: rec.CourseTitle,
				SessionDate: rec.SessionDate,
				Instructor:  rec.Instructors,
			}}
			groups[key] = g
			order = append(order, g)
		}
		g.row.Enrolled++
		if rec.SessionStart != nil && (g.earliest == nil || rec.SessionStart.Before(*g.earliest)) {
			g.earliest = rec.SessionStart
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, c := order[i], order[j]
		if da, dc := sessionDay(a.earliest), sessionDay(c.earliest); da != dc {
			return da < dc
		}
		if a.row.Module != c.row.Module {
			return a.row.Module < c.row.Module
		}
		return a.row.CourseTitle < c.row.CourseTitle
	})

	out := make([]internal.SessionSummaryRow, 0, len(order))
	for _, g := range order {
		out = append(out, g.row)
	}
	return out
}

// sessionDay orders groups by calendar day only; a nil date sorts first.
func sessionDay(t *time.Time) int {
	if t == nil {
		return -1
	}
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ManagerEmails returns the distinct non-empty manager e-mails in first-seen
// order.
func ManagerEmails(records []internal.EnrollmentRecord) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, rec := range records {
		if rec.ManagerEmail == "" {
			continue
		}
		if _, ok := seen[rec.ManagerEmail]; ok {
			continue
		}
		seen[rec.ManagerEmail] = struct{}{}
		out = append(out, rec.ManagerEmail)
	}
	return out
}
