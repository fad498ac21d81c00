package audit

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/clausemark/core"
)

// Rule describes one risky-clause pattern.
type Rule struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description"`
	Severity    core.Severity `yaml:"severity"`
	Pattern     string        `yaml:"pattern"`
}

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "auto_renewal_short_notice",
			Description: "Auto-renewal with short notice",
			Severity:    core.SeverityHigh,
			Pattern:     `(auto-?renew|automatically renew|renewal.*?(?:notice|prior).*?(\d{1,2})\s?days)`,
		},
		{
			ID:          "unlimited_liability",
			Description: "Unlimited liability or no liability cap",
			Severity:    core.SeverityCritical,
			Pattern:     `(unlimited liability|no cap on liability|liability not limited|no limit on liability)`,
		},
		{
			ID:          "broad_indemnity",
			Description: "Broad indemnity that may be risky",
			Severity:    core.SeverityMedium,
			Pattern:     `(indemnif(?:y|ication)).{0,200}?(hold harmless|defend|indemnify)`,
		},
		{
			ID:          "confidentiality_exclusion",
			Description: "Large exceptions to confidentiality",
			Severity:    core.SeverityMedium,
			Pattern:     `(confidential).*?(not apply|except|exclusion|excepted)`,
		},
	}
}

// compiledRule pairs a rule with its compiled pattern.
type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// RuleSet is an immutable, compiled rule table. It is safe for concurrent use.
type RuleSet struct {
	rules   []compiledRule
	skipped []string
}

// NewRuleSet compiles rules case-insensitively with "." matching newlines.
// Rules whose pattern does not compile are skipped and reported by Skipped.
func NewRuleSet(rules []Rule) *RuleSet {
	logger := slog.Default().With("component", "audit")
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile("(?is)" + r.Pattern)
		if err != nil {
			logger.Debug("skipping audit rule with invalid pattern", "rule", r.ID, "err", err)
			rs.skipped = append(rs.skipped, r.ID)
			continue
		}
		rs.rules = append(rs.rules, compiledRule{rule: r, re: re})
	}
	return rs
}

// Rules returns the usable rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	for i, cr := range rs.rules {
		out[i] = cr.rule
	}
	return out
}

// Skipped returns the IDs of rules that failed to compile.
func (rs *RuleSet) Skipped() []string {
	return append([]string(nil), rs.skipped...)
}

// Len returns the number of usable rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rule table of the form:
//
//	rules:
//	  - id: unlimited_liability
//	    description: Unlimited liability or no liability cap
//	    severity: critical
//	    pattern: (unlimited liability|no cap on liability)
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRuleFile, err)
	}
	for i, r := range rf.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidRuleFile, i)
		}
		if r.Severity.Rank() == 0 {
			return nil, fmt.Errorf("%w: rule %q has unknown severity %q", ErrInvalidRuleFile, r.ID, r.Severity)
		}
	}
	return rf.Rules, nil
}
