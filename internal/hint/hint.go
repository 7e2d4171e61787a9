// Package hint matches database error messages against configured patterns
// and produces remediation hints. Hints travel in their own field next to
// the original error message — the message itself is never altered, so
// callers can still distinguish failures by their text.
package hint

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is the hint matcher's own rule type.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher checks error messages against patterns and returns guidance hints.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher creates a Matcher. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("hint: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}, nil
}

// Match checks errMsg against all rules (top to bottom) and returns all
// matching hint messages joined by newlines. Empty string if no match.
func (m *Matcher) Match(errMsg string) string {
	var matches []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// Patterns returns the regex patterns that matched errMsg, nil if none.
func (m *Matcher) Patterns(errMsg string) []string {
	var patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
