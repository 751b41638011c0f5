package event

import (
	"regexp"
	"strings"
)

var titleCleanRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeTitle lowercases, strips punctuation and collapses whitespace so
// near-identical titles map to the same identity key.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = titleCleanRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// TitleSimilarity returns an edit-distance-based similarity in [0,1] between
// two titles after normalization. 1.0 means identical.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	// Distance and length must both count runes, or multi-byte titles get
	// an inflated denominator and slip under the dedup threshold.
	dist := levenshtein(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

// SimilarTitles reports whether two titles are near-exact duplicates
// (similarity >= 0.9).
func SimilarTitles(a, b string) bool {
	return TitleSimilarity(a, b) >= 0.9
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
