package matching

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// levOptions costs every edit 1. The library default charges a substitution
// as a delete plus an insert, which would halve the score of one-character
// code typos.
var levOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Ratio returns an edit-distance similarity in [0,100] between two strings.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.DistanceForStrings([]rune(a), []rune(b), levOptions)
	return (1 - float64(dist)/float64(maxLen)) * 100
}

// TokenSetRatio scores two normalized names by aligning each token of the
// shorter name with its best counterpart in the longer one and averaging.
// Extra qualifier tokens on one side ("- Tenants") cost little, which suits
// account names where one document is more verbose than the other.
func TokenSetRatio(a, b string) float64 {
	aTokens := uniqueTokens(a)
	bTokens := uniqueTokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}
	if len(aTokens) > len(bTokens) {
		aTokens, bTokens = bTokens, aTokens
	}

	total := 0.0
	for _, tok := range aTokens {
		best := 0.0
		for _, other := range bTokens {
			if sim := Ratio(tok, other); sim > best {
				best = sim
			}
		}
		total += best
	}
	score := total / float64(len(aTokens))

	// Penalize a large token-count mismatch so a one-word name cannot score
	// 100 against an unrelated long name that happens to contain it.
	coverage := float64(len(aTokens)) / float64(len(bTokens))
	if coverage < 0.5 {
		score *= 0.5 + coverage
	}
	if score > 100 {
		score = 100
	}
	return score
}

func uniqueTokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(s) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
