package server

import "testing"

func TestAnswersMatch(t *testing.T) {
	cases := []struct {
		name   string
		guess  string
		answer string
		want   bool
	}{
		{"exact", "apple", "apple", true},
		{"case insensitive", "Apple", "apple", true},
		{"spaces stripped", "a p p l e", "apple", true},
		{"punctuation stripped", "apple!", "apple", true},
		{"guess contains answer", "green apple", "apple", true},
		{"answer contains guess", "apple", "applepie", true},
		{"one edit in five runes", "appls", "apple", true},
		{"transposition too far", "appel", "apple", false},
		{"different word", "banana", "apple", false},
		{"hangul exact", "사과", "사과", true},
		{"hangul with latin noise", "사과!", "사과", true},
		{"hangul different", "바나나", "사과", false},
		{"empty guess", "", "apple", false},
		{"empty answer", "apple", "", false},
		{"symbols only", "!!!", "apple", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := answersMatch(tc.guess, tc.answer); got != tc.want {
				t.Fatalf("answersMatch(%q, %q) = %t, want %t", tc.guess, tc.answer, got, tc.want)
			}
		})
	}
}

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Apple Pie  ", "applepie"},
		{"사과 123", "사과123"},
		{"A-B_C", "abc"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := normalizeAnswer(tc.in); got != tc.want {
			t.Fatalf("normalizeAnswer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSimilarityBoundary(t *testing.T) {
	// One substitution over five runes scores 0.8, two score 0.6. The
	// threshold sits between them.
	if got := similarity("apple", "appls"); got < matchSimilarityThreshold {
		t.Fatalf("similarity(apple, appls) = %f, want >= %f", got, matchSimilarityThreshold)
	}
	if got := similarity("apple", "appel"); got >= matchSimilarityThreshold {
		t.Fatalf("similarity(apple, appel) = %f, want < %f", got, matchSimilarityThreshold)
	}
}
