package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reThousands = regexp.MustCompile(`^\d{1,3}(?:[,\s]\d{3})+$`)

// ParseEmployeeID parses an identifier cell. Spreadsheet exports hand back
// ids as "12345", "12345.0" or "12,345"; anything with a fractional part or
// non-digits is rejected.
func ParseEmployeeID(input string) (int64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(input, "\u00A0", " "))
	if s == "" {
		return 0, false
	}
	if reThousands.MatchString(s) {
		s = strings.NewReplacer(",", "", " ", "").Replace(s)
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
