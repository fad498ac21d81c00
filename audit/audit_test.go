package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/clausemark/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(findings []core.Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.RuleID
	}
	return ids
}

func TestRun_Empty(t *testing.T) {
	findings := Run("")
	require.NotNil(t, findings)
	assert.Empty(t, findings)
}

func TestRun_Sample(t *testing.T) {
	text := "This agreement will automatically renew and includes unlimited liability for party."
	findings := Run(text)

	ids := ruleIDs(findings)
	assert.Contains(t, ids, "auto_renewal_short_notice")
	assert.Contains(t, ids, "unlimited_liability")

	for _, f := range findings {
		assert.NoError(t, core.ValidateEvidence(text, f.Evidence))
		assert.Equal(t, strings.TrimSpace(text), f.Evidence.Snippet)
	}
}

func TestRun_RuleOrderNotPosition(t *testing.T) {
	// unlimited liability appears first in the text, renewal second
	text := "There is no cap on liability. Later, this contract shall auto-renew."
	findings := Run(text)
	assert.Equal(t, []string{"auto_renewal_short_notice", "unlimited_liability"}, ruleIDs(findings))
	assert.Equal(t, core.SeverityHigh, findings[0].Severity)
	assert.Equal(t, core.SeverityCritical, findings[1].Severity)
}

func TestRun_FirstMatchOnly(t *testing.T) {
	text := "Unlimited liability applies. Again: unlimited liability applies."
	findings := Run(text)
	require.Len(t, findings, 1)
	assert.Equal(t, 0, findings[0].Evidence.Start)
	assert.Equal(t, "Unlimited liability", findings[0].Evidence.Value)
}

func TestRun_DotMatchesNewline(t *testing.T) {
	text := "Supplier shall indemnify\nand hold harmless the Customer.\nConfidential terms\ndo not apply to public data."
	ids := ruleIDs(Run(text))
	assert.Equal(t, []string{"broad_indemnity", "confidentiality_exclusion"}, ids)
}

func TestRun_SnippetWindow(t *testing.T) {
	text := strings.Repeat("a", 200) + " unlimited liability " + strings.Repeat("b", 200)
	findings := Run(text)
	require.Len(t, findings, 1)

	ev := findings[0].Evidence
	assert.Equal(t, text[ev.Start:ev.End], ev.Value)
	assert.Equal(t, strings.TrimSpace(text[ev.Start-SnippetBefore:ev.End+SnippetAfter]), ev.Snippet)
}

func TestRun_Idempotent(t *testing.T) {
	text := "The Services auto-renew each year. Liability not limited."
	assert.Equal(t, Run(text), Run(text))
}

func TestNewRuleSet_SkipsInvalidPattern(t *testing.T) {
	rs := NewRuleSet([]Rule{
		{ID: "broken", Severity: core.SeverityLow, Pattern: "(unclosed"},
		{ID: "works", Description: "d", Severity: core.SeverityLow, Pattern: "penalty"},
	})
	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, []string{"broken"}, rs.Skipped())

	findings := NewAuditor(rs).Run("A late PENALTY applies.")
	require.Len(t, findings, 1)
	assert.Equal(t, "works", findings[0].RuleID)
	assert.Equal(t, "PENALTY", findings[0].Evidence.Value)
}

func TestNewAuditor_NilUsesDefaults(t *testing.T) {
	a := NewAuditor(nil)
	var ids []string
	for _, r := range a.Rules().Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{
		"auto_renewal_short_notice",
		"unlimited_liability",
		"broad_indemnity",
		"confidentiality_exclusion",
	}, ids)
}

func TestSample(t *testing.T) {
	findings := []core.Finding{
		{RuleID: "a", Severity: core.SeverityMedium},
		{RuleID: "b", Severity: core.SeverityCritical},
		{RuleID: "c", Severity: core.SeverityMedium},
		{RuleID: "d", Severity: core.SeverityHigh},
	}
	assert.Equal(t, []string{"b", "d", "a"}, ruleIDs(Sample(findings, 3)))
	assert.Equal(t, "a", findings[0].RuleID, "input must not be reordered")
	assert.Empty(t, Sample(findings, 0))
	assert.Len(t, Sample(findings, 10), 4)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		data := `rules:
  - id: late_fee
    description: Late payment penalty
    severity: low
    pattern: late\s+fee
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		rules, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "late_fee", rules[0].ID)
		assert.Equal(t, core.SeverityLow, rules[0].Severity)

		findings := NewAuditor(NewRuleSet(rules)).Run("A Late  Fee of 5%.")
		require.Len(t, findings, 1)
	})

	t.Run("unknown severity", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		data := "rules:\n  - id: x\n    severity: severe\n    pattern: x\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		_, err := LoadRules(path)
		assert.ErrorIs(t, err, ErrInvalidRuleFile)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
