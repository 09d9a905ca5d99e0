package pipeline

import (
	"enrollreport/internal"
	"enrollreport/internal/util"
)

type enrollmentKey struct {
	employeeID  int64
	courseTitle string
}

// Deduplicate keeps one record per (employee id, course title). Titles are
// compared folded, the same way the catalog resolves them. Within a
// group the winner comes from the highest non-empty tier, Attended, then
// Not Entered, then everything else, and is the latest session start in that
// tier. Missing dates sort earliest; ties keep the earlier row.
//
// Records without an employee id are never grouped and pass through. Survivors
// keep their original relative order. The second return is the number of
// records removed.
func Deduplicate(records []internal.EnrollmentRecord) ([]internal.EnrollmentRecord, int) {
	groups := map[enrollmentKey][]int{}
	order := []enrollmentKey{}
	keep := make([]bool, len(records))

	for i, rec := range records {
		if !rec.Valid() {
			keep[i] = true
			continue
		}
		key := enrollmentKey{employeeID: *rec.EmployeeID, courseTitle: util.NormalizeHeader(rec.CourseTitle)}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		keep[pickSurvivor(records, groups[key])] = true
	}

	out := make([]internal.EnrollmentRecord, 0, len(records))
	for i, rec := range records {
		if keep[i] {
			out = append(out, rec)
		}
	}
	return out, len(records) - len(out)
}

func pickSurvivor(records []internal.EnrollmentRecord, group []int) int {
	if len(group) == 1 {
		return group[0]
	}
	for _, status := range []internal.AttendanceStatus{internal.AttendanceAttended, internal.AttendanceNotEntered} {
		tier := make([]int, 0, len(group))
		for _, i := range group {
			if records[i].AttendanceStatus == status {
				tier = append(tier, i)
			}
		}
		if len(tier) > 0 {
			return latest(records, tier)
		}
	}
	return latest(records, group)
}

func latest(records []internal.EnrollmentRecord, candidates []int) int {
	best := candidates[0]
	for _, i := range candidates[1:] {
		if startsAfter(records[i], records[best]) {
			best = i
		}
	}
	return best
}

func startsAfter(a, b internal.EnrollmentRecord) bool {
	if a.SessionStart == nil {
		return false
	}
	if b.SessionStart == nil {
		return true
	}
	return a.SessionStart.After(*b.SessionStart)
}
