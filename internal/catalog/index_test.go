package catalog

import (
	"testing"

	"enrollreport/internal/config"
)

func TestIndexLookup(t *testing.T) {
	idx := BuildIndex([]config.CourseModule{
		{Title: "Leading Self: Foundations of Personal Leadership", Label: "Leading Self"},
		{Title: "Inclusive Leadership Essentials", Label: "Inclusion"},
	})

	if idx.Len() != 2 {
		t.Fatalf("len=%d", idx.Len())
	}
	if i, ok := idx.Lookup("Inclusive Leadership Essentials"); !ok || i != 1 {
		t.Fatalf("exact lookup i=%d ok=%v", i, ok)
	}
	if got := idx.Label("  inclusive  leadership ESSENTIALS "); got != "Inclusion" {
		t.Fatalf("normalized label=%q", got)
	}
	if got := idx.Label("Excel for Analysts"); got != "" {
		t.Fatalf("unmapped label=%q", got)
	}
}
