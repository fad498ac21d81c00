// Package audit flags risky contract clauses.
//
// An Auditor evaluates a compiled RuleSet against document text. Each rule
// reports at most its first match, with an evidence span and an 80 byte
// snippet window on either side. Rules are evaluated in table order and the
// findings keep that order.
//
//	findings := audit.Run(doc.FullText)
//
// Custom tables can be loaded from YAML with LoadRules. Rules whose pattern
// fails to compile are skipped rather than failing the scan.
package audit
