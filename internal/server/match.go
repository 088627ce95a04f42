package server

import (
	"strings"
	"unicode"
)

const matchSimilarityThreshold = 0.7

// answersMatch decides whether a liar's guess counts as the citizens' word.
// Both strings are normalized, then compared exact, by containment in either
// direction, and finally by Levenshtein similarity against the threshold.
func answersMatch(guess, answer string) bool {
	g := normalizeAnswer(guess)
	a := normalizeAnswer(answer)
	if g == "" || a == "" {
		return false
	}
	if g == a {
		return true
	}
	if strings.Contains(g, a) || strings.Contains(a, g) {
		return true
	}
	return similarity(g, a) >= matchSimilarityThreshold
}

// normalizeAnswer lowercases and strips everything except Hangul syllables,
// latin letters, and digits.
func normalizeAnswer(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case r >= '가' && r <= '힣':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

func similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(editDistance(ra, rb))/float64(maxLen)
}

func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
