package pipeline

import "testing"

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"industry", "industry", 0},
		{"industri", "industry", 1},
		{"name", "nmae", 2},
		{"", "abc", 3},
	}
	for _, tc := range cases {
		if got := editDistance(tc.a, tc.b); got != tc.want {
			t.Fatalf("editDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSuggestColumnsMatchesNearMisses(t *testing.T) {
	index := descriptionIndex{
		"industry":  {"Account.Industry"},
		"stagename": {"Opportunity.StageName"},
	}

	suggestions := suggestColumns(`Binder Error: column "Industri" not found`, index)
	if len(suggestions) != 1 || suggestions[0] != "Account.Industry" {
		t.Fatalf("suggestions = %v", suggestions)
	}
}

func TestSuggestColumnsIgnoresUnrelatedErrors(t *testing.T) {
	index := descriptionIndex{"industry": {"Account.Industry"}}
	if got := suggestColumns("connection refused", index); got != nil {
		t.Fatalf("suggestions = %v, want none", got)
	}
}

func TestSuggestColumnsSkipsExactMatches(t *testing.T) {
	index := descriptionIndex{"industry": {"Account.Industry"}}
	if got := suggestColumns(`column "Industry" is ambiguous`, index); got != nil {
		t.Fatalf("suggestions = %v, want none for exact column name", got)
	}
}
