package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Citation window around the anchor.
const (
	WindowBefore = 80
	WindowAfter  = 200
)

// MaxVectorNeighbors caps the neighbours requested from the provider,
// whose result rows are sized by k.
const MaxVectorNeighbors = 1000

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// tokenize splits a question into lowercase word tokens, dropping tokens of
// two runes or fewer. Duplicates are kept and contribute to the score again.
func tokenize(question string) []string {
	words := wordPattern.FindAllString(question, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

// termMatcher finds case-insensitive occurrences of one token.
type termMatcher struct {
	token string
	re    *regexp.Regexp
}

func newTermMatchers(tokens []string) []termMatcher {
	matchers := make([]termMatcher, len(tokens))
	for i, tok := range tokens {
		matchers[i] = termMatcher{token: tok, re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(tok))}
	}
	return matchers
}

// keywordScore returns the summed non-overlapping occurrence count of every
// matcher in text, and the offset of the first occurrence of the first
// matcher that occurs at all. anchor is -1 when score is 0.
func keywordScore(text string, matchers []termMatcher) (score int, anchor int) {
	anchor = -1
	for _, m := range matchers {
		locs := m.re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		score += len(locs)
		if anchor < 0 {
			anchor = locs[0][0]
		}
	}
	return score, anchor
}
