package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// BuildPages lays out page texts back to back and returns the page spans and
// the resulting full text. Empty pages are skipped but keep their numbering,
// so Page is always the 1-based position in texts. A page followed by another
// that does not end in whitespace gets a trailing newline inside its own span,
// so words never merge across a page break.
func BuildPages(texts []string) ([]PageSpan, string) {
	last := -1
	for i, t := range texts {
		if t != "" {
			last = i
		}
	}

	var sb strings.Builder
	pages := make([]PageSpan, 0, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		if i < last {
			if r, _ := utf8.DecodeLastRuneInString(t); !unicode.IsSpace(r) {
				t += "\n"
			}
		}
		start := sb.Len()
		sb.WriteString(t)
		pages = append(pages, PageSpan{
			Page:  i + 1,
			Text:  t,
			Start: start,
			End:   sb.Len(),
		})
	}
	return pages, sb.String()
}

// Window returns [start-before, end+after) clipped to the bounds of text and
// widened outward to rune boundaries.
func Window(text string, start, end, before, after int) (int, int) {
	lo := max(0, start-before)
	hi := min(len(text), end+after)
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return lo, hi
}

// Snippet returns the whitespace-trimmed window around [start, end).
func Snippet(text string, start, end, before, after int) string {
	lo, hi := Window(text, start, end, before, after)
	return strings.TrimSpace(text[lo:hi])
}

// NewEvidence builds an EvidenceSpan for text[start:end] with a snippet
// window of before/after bytes around it.
func NewEvidence(text string, start, end, before, after int) EvidenceSpan {
	return EvidenceSpan{
		Start:   start,
		End:     end,
		Value:   text[start:end],
		Snippet: Snippet(text, start, end, before, after),
	}
}
