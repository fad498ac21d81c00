package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Documents receive IDs from database sequences; content hashes use IDFromContent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Severity ranks how risky an audit finding is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from least (1) to most (4) severe.
// Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// PageSpan is one page of a document's text together with its offsets in
// the document's full text. End is exclusive.
type PageSpan struct {
	Page  int
	Text  string
	Start int
	End   int
}

// Contains reports whether offset falls inside [Start, End).
func (p PageSpan) Contains(offset int) bool {
	return p.Start <= offset && offset < p.End
}

// Document is a stored source text with its page layout.
// Engines read documents but never modify them.
type Document struct {
	Id          ID
	Filename    string
	FullText    string
	Pages       []PageSpan
	Metadata    map[string]string
	ContentHash ID        // IDFromContent(FullText), set on insert
	InsertedAt  time.Time // When the document was stored
}

// PageAt returns the index into d.Pages of the page containing offset,
// or -1 when no page contains it.
func (d *Document) PageAt(offset int) int {
	for i, p := range d.Pages {
		if p.Contains(offset) {
			return i
		}
	}
	return -1
}

// EvidenceSpan ties a result to the exact region of text that produced it.
type EvidenceSpan struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Value   string `json:"value"`
	Snippet string `json:"snippet"`
}

// Finding is a single audit rule hit.
type Finding struct {
	RuleID      string       `json:"rule_id"`
	Description string       `json:"description"`
	Severity    Severity     `json:"severity"`
	Evidence    EvidenceSpan `json:"evidence"`
}

// RetrievalResult is a scored document region answering a question.
// Page is nil when no page span contains the anchor offset.
type RetrievalResult struct {
	DocumentID ID      `json:"document_id"`
	Page       *int    `json:"page"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Snippet    string  `json:"text_snippet"`
	Score      float64 `json:"score"`
}

// QueryResponse wraps the ranked results of a retrieval query.
type QueryResponse struct {
	Results []RetrievalResult `json:"results"`
}

// AuditEvent is delivered to notification sinks after a document is audited.
type AuditEvent struct {
	DocumentID     ID        `json:"document_id"`
	FindingsCount  int       `json:"findings_count"`
	SampleFindings []Finding `json:"sample_findings"`
}

// Checkpoint tracks the progress of a resumable background processor.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}
