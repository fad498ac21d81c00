package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This Agreement is between Alpha Inc and Beta LLC and renews automatically."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestSeverity_Rank(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityLow, 1},
		{SeverityMedium, 2},
		{SeverityHigh, 3},
		{SeverityCritical, 4},
		{Severity("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			if got := tt.severity.Rank(); got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocument_PageAt(t *testing.T) {
	pages, full := BuildPages([]string{"first page. ", "second page. ", "third"})
	doc := &Document{FullText: full, Pages: pages}

	tests := []struct {
		name   string
		offset int
		want   int
	}{
		{"start of first page", 0, 0},
		{"last byte of first page", len("first page. ") - 1, 0},
		{"start of second page", len("first page. "), 1},
		{"inside third page", len(full) - 1, 2},
		{"end of text", len(full), -1},
		{"negative offset", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.PageAt(tt.offset); got != tt.want {
				t.Errorf("PageAt(%d) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}
