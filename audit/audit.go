package audit

import (
	"sync"

	"github.com/poiesic/clausemark/core"
)

// Evidence window around each match.
const (
	SnippetBefore = 80
	SnippetAfter  = 80
)

// Auditor runs a RuleSet over document text.
// It holds no mutable state and is safe for concurrent use.
type Auditor struct {
	rules *RuleSet
}

// NewAuditor creates an Auditor for rules.
// A nil rule set uses the default rules.
func NewAuditor(rules *RuleSet) *Auditor {
	if rules == nil {
		rules = defaultRuleSet()
	}
	return &Auditor{rules: rules}
}

var defaultRuleSet = sync.OnceValue(func() *RuleSet {
	return NewRuleSet(DefaultRules())
})

var defaultAuditor = sync.OnceValue(func() *Auditor {
	return NewAuditor(defaultRuleSet())
})

// Run audits text with the default rule table.
func Run(text string) []core.Finding {
	return defaultAuditor().Run(text)
}

// Run evaluates each rule in order and reports at most one finding per rule,
// for the first match in the text. Empty text yields no findings.
func (a *Auditor) Run(text string) []core.Finding {
	findings := []core.Finding{}
	if text == "" {
		return findings
	}
	for _, cr := range a.rules.rules {
		loc := cr.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		findings = append(findings, core.Finding{
			RuleID:      cr.rule.ID,
			Description: cr.rule.Description,
			Severity:    cr.rule.Severity,
			Evidence:    core.NewEvidence(text, loc[0], loc[1], SnippetBefore, SnippetAfter),
		})
	}
	return findings
}

// Rules returns the rule set the auditor evaluates.
func (a *Auditor) Rules() *RuleSet {
	return a.rules
}

// Sample returns up to n findings, most severe first, keeping rule order
// among equal severities.
func Sample(findings []core.Finding, n int) []core.Finding {
	if n <= 0 || len(findings) == 0 {
		return []core.Finding{}
	}
	sorted := make([]core.Finding, len(findings))
	copy(sorted, findings)
	// insertion sort keeps equal severities in rule order
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Severity.Rank() > sorted[j-1].Severity.Rank(); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[:min(n, len(sorted))]
}
