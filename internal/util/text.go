package util

import (
	"regexp"
	"strings"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `«»]`)
	reNonAllowed = regexp.MustCompile(`[^a-z0-9\-/\s.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeName lowercases a product name and strips everything that is not a
// letter, digit, dash, slash or dot, collapsing whitespace.
func NormalizeName(input string) string {
	s := strings.ToLower(input)
	s = strings.ReplaceAll(s, "×", "x")
	s = strings.ReplaceAll(s, "*", "x")
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func Tokenize(input string) []string {
	norm := NormalizeName(input)
	parts := strings.Split(norm, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

// SimilarityRatio is the Ratcliff/Obershelp ratio between two strings,
// case-insensitive, in [0,1]: twice the total length of the recursively found
// longest matching blocks over the combined length.
func SimilarityRatio(a, b string) float64 {
	ar := []rune(strings.ToLower(a))
	br := []rune(strings.ToLower(b))
	if len(ar) == 0 && len(br) == 0 {
		return 1
	}
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}
	matched := matchingBlockTotal(ar, br)
	return 2 * float64(matched) / float64(len(ar)+len(br))
}

func matchingBlockTotal(a, b []rune) int {
	i, j, size := longestMatchingBlock(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlockTotal(a[:i], b[:j])
	total += matchingBlockTotal(a[i+size:], b[j+size:])
	return total
}

func longestMatchingBlock(a, b []rune) (bestI, bestJ, bestSize int) {
	// runLen[j] is the length of the common run ending at a[i-1], b[j].
	runLen := map[int]int{}
	for i := range a {
		next := map[int]int{}
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := runLen[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		runLen = next
	}
	return bestI, bestJ, bestSize
}
