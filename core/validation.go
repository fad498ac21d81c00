// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - FullText must not be empty
//   - Pages must satisfy ValidatePages against FullText
//
// NOT validated:
//   - ID (0 is valid until the database assigns one)
//   - ContentHash (populated on insert)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if doc.FullText == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if err := ValidatePages(doc.FullText, doc.Pages); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidatePages checks that pages are ordered, contiguous and non-overlapping,
// and that their concatenation is exactly fullText.
// An empty page list is valid.
func ValidatePages(fullText string, pages []PageSpan) error {
	if len(pages) == 0 {
		return nil
	}
	expected := 0
	for i, p := range pages {
		if p.Start != expected {
			return fmt.Errorf("%w: page %d starts at %d, want %d", ErrInvalidPageSpan, i, p.Start, expected)
		}
		if p.Text == "" {
			return fmt.Errorf("%w: page %d is empty", ErrInvalidPageSpan, i)
		}
		if p.End != p.Start+len(p.Text) {
			return fmt.Errorf("%w: page %d ends at %d, want %d", ErrInvalidPageSpan, i, p.End, p.Start+len(p.Text))
		}
		if p.End > len(fullText) || fullText[p.Start:p.End] != p.Text {
			return fmt.Errorf("%w: page %d text does not match document text", ErrInvalidPageSpan, i)
		}
		expected = p.End
	}
	if expected != len(fullText) {
		return fmt.Errorf("%w: pages cover %d of %d bytes", ErrInvalidPageSpan, expected, len(fullText))
	}
	return nil
}

// ValidateEvidence checks 0 <= Start <= End <= len(text).
func ValidateEvidence(text string, ev EvidenceSpan) error {
	if ev.Start < 0 || ev.Start > ev.End || ev.End > len(text) {
		return fmt.Errorf("%w: [%d, %d) in text of length %d", ErrInvalidEvidence, ev.Start, ev.End, len(text))
	}
	return nil
}
