package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

// descriptionIndex maps a lowercased column name to its qualified
// Table.Column spellings.
type descriptionIndex map[string][]string

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "order": true,
	"limit": true, "join": true, "inner": true, "left": true, "right": true,
	"table": true, "column": true, "and": true, "not": true, "null": true,
	"found": true, "does": true, "exist": true, "error": true, "clause": true,
	"binder": true, "catalog": true, "referenced": true, "query": true,
}

// suggestColumns turns a backend error about an unknown column into
// "did you mean" hints based on edit distance against the live schema.
func suggestColumns(message string, index descriptionIndex) []string {
	if index == nil {
		return nil
	}
	lowered := strings.ToLower(message)
	if !strings.Contains(lowered, "column") && !strings.Contains(lowered, "not found") {
		return nil
	}

	seen := map[string]bool{}
	var suggestions []string
	for _, token := range identifierPattern.FindAllString(message, -1) {
		candidate := strings.ToLower(token)
		if sqlKeywords[candidate] {
			continue
		}
		if _, exists := index[candidate]; exists {
			continue
		}
		for column, qualified := range index {
			if editDistance(candidate, column) > maxDistanceFor(candidate) {
				continue
			}
			for _, name := range qualified {
				if !seen[name] {
					seen[name] = true
					suggestions = append(suggestions, name)
				}
			}
		}
	}
	sort.Strings(suggestions)
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}

func maxDistanceFor(token string) int {
	if len(token) <= 4 {
		return 1
	}
	return 2
}

func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	previous := make([]int, len(b)+1)
	current := make([]int, len(b)+1)
	for j := range previous {
		previous[j] = j
	}
	for i := 1; i <= len(a); i++ {
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[j] = min(previous[j]+1, current[j-1]+1, previous[j-1]+cost)
		}
		previous, current = current, previous
	}
	return previous[len(b)]
}
