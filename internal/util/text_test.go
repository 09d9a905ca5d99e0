package util

import "testing"

func TestCleanName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Jane Doe (Sales)", want: "Jane Doe"},
		{in: "Li Wei（李伟）", want: "Li Wei"},
		{in: "李雷（销售）", want: "李雷"},
		{in: "  Sam Roe  ", want: "Sam Roe"},
		{in: "Ann (A) Lee (Ops)", want: "Ann Lee"},
		{in: "Bo ((nested)) Chen", want: "Bo Chen"},
		{in: "No Parens", want: "No Parens"},
		{in: "", want: ""},
		{in: "(Contractor) Dee Ray", want: "Dee Ray"},
	}
	for _, tc := range cases {
		if got := CleanName(tc.in); got != tc.want {
			t.Fatalf("CleanName(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	if got := NormalizeHeader("  Manager's   EMAIL "); got != "manager's email" {
		t.Fatalf("got %q", got)
	}
}
