package util

import (
	"regexp"
	"strings"
)

var (
	reParenthetical = regexp.MustCompile(`\s*[(（][^()（）]*[)）]`)
	reSpaces        = regexp.MustCompile(`\s+`)
)

// CleanName strips parenthetical content, Latin "( )" or full-width "（ ）",
// and trims the result: "Jane Doe (Sales)" -> "Jane Doe".
func CleanName(input string) string {
	s := input
	for {
		next := reParenthetical.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeHeader folds a spreadsheet header for lookups: trimmed, single
// spaced, lower case.
func NormalizeHeader(input string) string {
	return strings.ToLower(NormalizeSpaces(input))
}

func Int64Ptr(v int64) *int64 {
	return &v
}
