// Package similarity provides the token-overlap scoring used by the
// deduplication engine to compare candidate tasks against existing ones.
//
// The metric is intentionally simple: Jaccard similarity over whitespace
// tokens of the normalized strings. No stemming, no synonym handling, no
// order sensitivity. "Call the vet" and "the vet call" score 1.0, while
// "Call the vet" and "Phone the veterinarian" score low. This is a known
// limitation accepted to keep the comparison deterministic and cheap.
package similarity

import "strings"

// Normalize lowercases and trims a string for comparison. Titles and
// descriptions are always normalized before any equality or similarity check.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokens returns the set of whitespace-separated tokens in the normalized
// string. The empty string produces an empty set.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard computes intersection-over-union of the token sets of a and b.
// Returns a value in [0, 1]. If either side tokenizes to the empty set the
// result is 0, so blank fields never contribute a match.
func Jaccard(a, b string) float64 {
	ta := Tokens(a)
	tb := Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}
