// Package mask applies regex-based masking to result row values before they
// leave the gateway, so sensitive column contents (tokens, emails, secrets)
// are not echoed back to untrusted callers verbatim.
package mask

import (
	"fmt"
	"regexp"
)

// Rule is the masker's own rule type.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Masker applies masking rules to string values in result rows.
type Masker struct {
	rules []compiledRule
}

// NewMasker creates a Masker. Returns an error on invalid regex patterns.
func NewMasker(rules []Rule) (*Masker, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("mask: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Masker{rules: compiled}, nil
}

// HasRules returns true if the masker has any rules configured.
func (m *Masker) HasRules() bool {
	return len(m.rules) > 0
}

// Apply masks each field value in the result rows in place and returns rows.
// JSONB and array values (map[string]interface{}, []interface{}) are
// recursed into; only string leaves are rewritten.
func (m *Masker) Apply(rows []map[string]interface{}) []map[string]interface{} {
	if !m.HasRules() {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = m.applyValue(v)
		}
	}
	return rows
}

func (m *Masker) applyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range m.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = m.applyValue(inner)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = m.applyValue(item)
		}
		return val
	default:
		// Numeric, bool, nil, time — nothing to mask.
		return v
	}
}
