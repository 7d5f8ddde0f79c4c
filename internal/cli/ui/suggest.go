package ui

import (
	"sort"
	"strings"
)

// Suggest returns up to max candidates close to target, best first. A
// candidate is close when it contains target or is within a third of its
// length in edit distance.
func Suggest(target string, candidates []string, max int) []string {
	type match struct {
		value string
		score int
	}

	needle := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		hay := strings.ToLower(c)
		switch {
		case hay == needle:
			continue
		case needle != "" && strings.Contains(hay, needle):
			matches = append(matches, match{c, 0})
		default:
			limit := len(needle)/3 + 1
			if d := distance(needle, hay); d <= limit {
				matches = append(matches, match{c, d})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score < matches[j].score
		}
		return matches[i].value < matches[j].value
	})

	if max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = m.value
	}
	return result
}

// distance is the Levenshtein distance between a and b
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
