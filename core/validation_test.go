package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	pages, full := BuildPages([]string{"Page one.\n", "Page two.\n"})

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document",
			doc:     &Document{Filename: "a.pdf", FullText: full, Pages: pages},
			wantErr: nil,
		},
		{
			name:    "valid document without pages",
			doc:     &Document{Filename: "a.txt", FullText: "plain"},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty filename",
			doc:     &Document{FullText: full, Pages: pages},
			wantErr: ErrEmptyFilename,
		},
		{
			name:    "empty text",
			doc:     &Document{Filename: "a.pdf"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "pages do not match text",
			doc:     &Document{Filename: "a.pdf", FullText: full + "extra", Pages: pages},
			wantErr: ErrInvalidPageSpan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePages(t *testing.T) {
	full := "abcdef"

	tests := []struct {
		name    string
		pages   []PageSpan
		wantErr bool
	}{
		{
			name: "contiguous pages",
			pages: []PageSpan{
				{Page: 1, Text: "abc", Start: 0, End: 3},
				{Page: 2, Text: "def", Start: 3, End: 6},
			},
		},
		{
			name: "gap between pages",
			pages: []PageSpan{
				{Page: 1, Text: "ab", Start: 0, End: 2},
				{Page: 2, Text: "def", Start: 3, End: 6},
			},
			wantErr: true,
		},
		{
			name: "overlapping pages",
			pages: []PageSpan{
				{Page: 1, Text: "abcd", Start: 0, End: 4},
				{Page: 2, Text: "def", Start: 3, End: 6},
			},
			wantErr: true,
		},
		{
			name: "empty page",
			pages: []PageSpan{
				{Page: 1, Text: "abcdef", Start: 0, End: 6},
				{Page: 2, Text: "", Start: 6, End: 6},
			},
			wantErr: true,
		},
		{
			name: "short coverage",
			pages: []PageSpan{
				{Page: 1, Text: "abc", Start: 0, End: 3},
			},
			wantErr: true,
		},
		{
			name: "wrong text",
			pages: []PageSpan{
				{Page: 1, Text: "abc", Start: 0, End: 3},
				{Page: 2, Text: "xyz", Start: 3, End: 6},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePages(full, tt.pages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPageSpan) {
				t.Errorf("ValidatePages() error = %v, want ErrInvalidPageSpan", err)
			}
		})
	}
}

func TestValidateEvidence(t *testing.T) {
	text := "hello world"
	tests := []struct {
		name    string
		ev      EvidenceSpan
		wantErr bool
	}{
		{"whole text", EvidenceSpan{Start: 0, End: len(text)}, false},
		{"zero length", EvidenceSpan{Start: 3, End: 3}, false},
		{"negative start", EvidenceSpan{Start: -1, End: 2}, true},
		{"inverted", EvidenceSpan{Start: 4, End: 2}, true},
		{"past end", EvidenceSpan{Start: 0, End: len(text) + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvidence(text, tt.ev)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEvidence() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
