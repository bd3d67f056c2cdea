package anagram

import (
	"unicode"

	"golang.org/x/exp/slices"
)

// IsAnagram reports whether a and b contain the same letters the same number
// of times, ignoring case and every non-letter rune.
func IsAnagram(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if len(na) != len(nb) {
		return false
	}
	counts := make(map[rune]int, len(na))
	for _, r := range na {
		counts[r]++
	}
	for _, r := range nb {
		counts[r]--
		if counts[r] < 0 {
			return false
		}
	}
	return true
}

// Signature returns the sorted, case-folded letters of text. Producers that
// have no cheaper bucketing key can use it directly.
func Signature(text string) string {
	n := normalize(text)
	slices.Sort(n)
	return string(n)
}

func normalize(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if unicode.IsLetter(r) {
			out = append(out, unicode.ToLower(r))
		}
	}
	return out
}

func letterCount(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
