package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/poiesic/clausemark/core"
)

// AutoRenewalEvidenceKey is added to Map output only when auto-renewal
// language was found.
const AutoRenewalEvidenceKey = "auto_renewal_evidence"

// Keys lists the extracted field names in output order.
var Keys = []string{
	"parties",
	"effective_date",
	"term",
	"governing_law",
	"payment_terms",
	"termination",
	"auto_renewal",
	"confidentiality",
	"indemnity",
	"liability_cap",
	"signatories",
}

// Parties names the contracting parties. Span is nil when the names were
// assembled from separate lines rather than one contiguous match.
type Parties struct {
	Value []string
	Span  *core.EvidenceSpan
}

// MarshalJSON flattens the span into {value, start, end, snippet}. Offsets
// are omitted when Span is nil.
func (p *Parties) MarshalJSON() ([]byte, error) {
	type flat struct {
		Value   []string `json:"value"`
		Start   *int     `json:"start,omitempty"`
		End     *int     `json:"end,omitempty"`
		Snippet string   `json:"snippet,omitempty"`
	}
	out := flat{Value: p.Value}
	if p.Span != nil {
		out.Start, out.End, out.Snippet = &p.Span.Start, &p.Span.End, p.Span.Snippet
	}
	return json.Marshal(out)
}

// Fields holds the result of an extraction. A nil field was not found.
type Fields struct {
	Parties             *Parties
	EffectiveDate       *core.EvidenceSpan
	Term                *core.EvidenceSpan
	GoverningLaw        *core.EvidenceSpan
	PaymentTerms        *core.EvidenceSpan
	Termination         *core.EvidenceSpan
	AutoRenewal         bool
	AutoRenewalEvidence *core.EvidenceSpan
	Confidentiality     *core.EvidenceSpan
	Indemnity           *core.EvidenceSpan
	LiabilityCap        *core.EvidenceSpan
	Signatories         *core.EvidenceSpan
}

// Map returns every key in Keys, plus AutoRenewalEvidenceKey when
// AutoRenewalEvidence is set. Missing fields map to an untyped nil.
func (f *Fields) Map() map[string]any {
	m := make(map[string]any, len(Keys)+1)
	m["parties"] = orNil(f.Parties)
	m["effective_date"] = orNil(f.EffectiveDate)
	m["term"] = orNil(f.Term)
	m["governing_law"] = orNil(f.GoverningLaw)
	m["payment_terms"] = orNil(f.PaymentTerms)
	m["termination"] = orNil(f.Termination)
	m["auto_renewal"] = f.AutoRenewal
	if f.AutoRenewalEvidence != nil {
		m[AutoRenewalEvidenceKey] = f.AutoRenewalEvidence
	}
	m["confidentiality"] = orNil(f.Confidentiality)
	m["indemnity"] = orNil(f.Indemnity)
	m["liability_cap"] = orNil(f.LiabilityCap)
	m["signatories"] = orNil(f.Signatories)
	return m
}

func orNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}

var (
	partiesPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)this\s+agreement\s+is\s+between\s+(.{1,200}?)\s+and\s+([^.,;\n]{1,200})`),
		regexp.MustCompile(`(?is)between\s+(.{1,200}?)\s+and\s+([^.,;\n]{1,200})`),
	}
	entitySuffix = regexp.MustCompile(`(?i)\b(?:inc|ltd|llc|corporation|company|limited)\b|\bco\.`)

	effectiveDate = firstOf(
		pattern(regexp.MustCompile(`(?i)effective\s+as\s+of\s+[A-Za-z0-9, \-]+`)),
		pattern(regexp.MustCompile(`(?i)effective\s*date[:\s]*[A-Za-z0-9, \-]+`)),
		keywordSentence("effective date", "effective as of", "commencement date"),
	)
	term = firstOf(
		pattern(regexp.MustCompile(`(?i)term\s+of\s+[0-9]{1,2}\s+(?:years?|months?|days?)`)),
		pattern(regexp.MustCompile(`(?i)for\s+a\s+period\s+of\s+[0-9]{1,2}\s+(?:years?|months?|days?)`)),
		keywordSentence("term of", "for a period of", "for a term of", "initial term"),
	)
	governingLaw = firstOf(
		pattern(regexp.MustCompile(`(?i)governed\s+by\s+(?:and\s+construed\s+in\s+accordance\s+with\s+)?the\s+laws?\s+of\s+[A-Za-z ,]+`)),
		keywordSentence("governing law", "governed by", "laws of the state of"),
	)
	paymentTerms = firstOf(
		pattern(regexp.MustCompile(`(?i)(?:payment|invoices?)[^.?!\n]{0,80}?(?:due|payable)\s+within\s+[0-9]{1,3}\s+days`)),
		pattern(regexp.MustCompile(`(?i)\bnet\s*[0-9]{1,3}\b`)),
		keywordSentence("payment", "payable", "invoice", "fees"),
	)
	termination = firstOf(
		pattern(regexp.MustCompile(`(?i)terminat(?:e|ion)[^.?!\n]{0,120}?upon\s+[0-9]{1,3}\s+days'?\s+(?:prior\s+)?(?:written\s+)?notice`)),
		keywordSentence("termination", "terminate", "terminated"),
	)
	autoRenewal = pattern(regexp.MustCompile(`(?i)auto-?renew|automatically\s+renew|renew\s+automatically|automatic\s+renewal`))
	confidentiality = keywordSentence("confidential", "confidentiality", "non-disclosure", "confidential information")
	indemnity       = keywordSentence("indemnify", "indemnity", "hold harmless")
	liabilityCap    = firstOf(
		pattern(regexp.MustCompile(`(?i)liabilit(?:y|ies).{0,80}?(?:cap|limited to|limited amount|not exceed|maximum)`)),
		pattern(regexp.MustCompile(`(?i)no cap on liability|unlimited liability|liability not limited`)),
	)
	signatories = firstOf(
		pattern(regexp.MustCompile(`(?i)signed\s+by:?[ \t]*(?:\n[ \t]*)?[^\n]{1,200}`)),
		keywordSentence("authorized signature", "signature", "signed"),
	)
)

// Extract resolves every field against text. It never fails; unresolved
// fields are nil.
func Extract(text string) *Fields {
	f := &Fields{}
	if text == "" {
		return f
	}
	f.Parties = resolveParties(text)
	f.EffectiveDate = resolve(effectiveDate, text)
	f.Term = resolve(term, text)
	f.GoverningLaw = resolve(governingLaw, text)
	f.PaymentTerms = resolve(paymentTerms, text)
	f.Termination = resolve(termination, text)
	f.AutoRenewalEvidence = resolve(autoRenewal, text)
	f.AutoRenewal = f.AutoRenewalEvidence != nil
	f.Confidentiality = resolve(confidentiality, text)
	f.Indemnity = resolve(indemnity, text)
	f.LiabilityCap = resolve(liabilityCap, text)
	f.Signatories = resolve(signatories, text)
	return f
}

func resolve(r resolver, text string) *core.EvidenceSpan {
	span, ok := r(text)
	if !ok {
		return nil
	}
	return &span
}

func resolveParties(text string) *Parties {
	for _, re := range partiesPatterns {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		a := strings.TrimSpace(text[m[2]:m[3]])
		b := strings.TrimSpace(text[m[4]:m[5]])
		if a == "" || b == "" {
			continue
		}
		span, ok := trimmedEvidence(text, m[0], m[1])
		if !ok {
			continue
		}
		return &Parties{Value: []string{a, b}, Span: &span}
	}
	return partiesFromLines(text)
}

// partiesFromLines takes the first two of the leading 30 non-empty lines
// that carry a legal-entity suffix.
func partiesFromLines(text string) *Parties {
	var names []string
	seen := 0
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if seen++; seen > 30 {
			break
		}
		if entitySuffix.MatchString(line) {
			names = append(names, line)
			if len(names) == 2 {
				break
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &Parties{Value: names}
}
