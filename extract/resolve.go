package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/clausemark/core"
)

// Evidence snippet window for extracted values.
const (
	SnippetBefore = 80
	SnippetAfter  = 80
)

// A resolver reports the evidence for a field, or ok=false when it has none.
type resolver func(text string) (span core.EvidenceSpan, ok bool)

// firstOf tries each resolver in order and returns the first hit.
func firstOf(resolvers ...resolver) resolver {
	return func(text string) (core.EvidenceSpan, bool) {
		for _, r := range resolvers {
			if span, ok := r(text); ok {
				return span, true
			}
		}
		return core.EvidenceSpan{}, false
	}
}

// pattern resolves to the first match of re, whitespace-trimmed.
func pattern(re *regexp.Regexp) resolver {
	return func(text string) (core.EvidenceSpan, bool) {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return core.EvidenceSpan{}, false
		}
		return trimmedEvidence(text, loc[0], loc[1])
	}
}

// keywordSentence resolves to the first sentence containing any keyword.
// Sentences end at '.', '?', '!', a line break or the end of the text.
func keywordSentence(keywords ...string) resolver {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	re := regexp.MustCompile(`(?i)[^.?!\n]*?(?:` + strings.Join(quoted, "|") + `)[^.?!\n]*(?:[.?!\n]|$)`)
	return pattern(re)
}

// trimmedEvidence narrows [start, end) past surrounding whitespace so that
// the span's Value is exactly text[Start:End].
func trimmedEvidence(text string, start, end int) (core.EvidenceSpan, bool) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start == end {
		return core.EvidenceSpan{}, false
	}
	return core.NewEvidence(text, start, end, SnippetBefore, SnippetAfter), true
}
