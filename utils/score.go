package utils

import "strings"

// DefaultFuzzyThreshold is the share of query words that must appear in the text.
const DefaultFuzzyThreshold = 0.6

// FuzzyMatch reports whether query occurs in text as a substring, or
// whether at least threshold of its words appear among the text's words.
func FuzzyMatch(query, text string, threshold float64) bool {
	if query == "" || text == "" {
		return false
	}
	q := strings.ToLower(query)
	t := strings.ToLower(text)
	if strings.Contains(t, q) {
		return true
	}

	queryWords := strings.Fields(q)
	if len(queryWords) == 0 {
		return false
	}
	textWords := make(map[string]struct{})
	for _, w := range strings.Fields(t) {
		textWords[w] = struct{}{}
	}
	matched := 0
	for _, w := range queryWords {
		if _, ok := textWords[w]; ok {
			matched++
		}
	}
	return float64(matched)/float64(len(queryWords)) >= threshold
}

// DiversityScore is the smallest percentage share among the models a user
// actually used. Models absent from counts are not considered.
func DiversityScore(counts map[string]int64) float64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}
	lowest := 100.0
	for _, n := range counts {
		if share := float64(n) / float64(total) * 100; share < lowest {
			lowest = share
		}
	}
	return lowest
}

// ContributorScore weighs approved reviews at ten points each plus one
// point per helpful vote.
func ContributorScore(approvedReviews, helpfulVotes int64) int64 {
	return approvedReviews*10 + helpfulVotes
}
