package pipeline

import (
	"fmt"
	"time"

	"enrollreport/internal"
)

// Ordinal renders a day of month with its suffix: 1st, 2nd, 3rd, 11th, 21st.
func Ordinal(n int) string {
	suffix := "th"
	switch {
	case n >= 11 && n <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// FormatSessionDate renders "March 3rd". A nil time yields "".
func FormatSessionDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Month().String() + " " + Ordinal(t.Day())
}

// ApplySessionDates fills SessionDate on every record. The label is display
// only; anything ordering by date must run before this and use SessionStart.
func ApplySessionDates(records []internal.EnrollmentRecord) {
	for i := range records {
		records[i].SessionDate = FormatSessionDate(records[i].SessionStart)
	}
}
