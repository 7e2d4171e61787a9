// Package timeout resolves per-statement execution deadlines. Pattern rules
// are checked first (first match wins); statements with no matching rule get
// the read or write default depending on how they will execute.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a SQL regex pattern to a specific timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config is the timeout resolver's own config type.
type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Rules        []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Resolver picks the timeout for a statement. Safe for concurrent use.
type Resolver struct {
	rules        []compiledRule
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewResolver creates a Resolver. Returns an error on invalid regex patterns
// or non-positive timeouts.
func NewResolver(config Config) (*Resolver, error) {
	if config.ReadTimeout <= 0 {
		return nil, fmt.Errorf("timeout: read timeout must be > 0, got %v", config.ReadTimeout)
	}
	if config.WriteTimeout <= 0 {
		return nil, fmt.Errorf("timeout: write timeout must be > 0, got %v", config.WriteTimeout)
	}
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		if r.Timeout <= 0 {
			return nil, fmt.Errorf("timeout: rule %q has non-positive timeout", r.Pattern)
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Resolver{
		rules:        compiled,
		readTimeout:  config.ReadTimeout,
		writeTimeout: config.WriteTimeout,
	}, nil
}

// Resolve returns the timeout for sql and the pattern of the rule that
// matched, or "" when a default applied. First matching rule wins.
func (r *Resolver) Resolve(sql string, write bool) (time.Duration, string) {
	for _, rule := range r.rules {
		if rule.pattern.MatchString(sql) {
			return rule.timeout, rule.pattern.String()
		}
	}
	if write {
		return r.writeTimeout, ""
	}
	return r.readTimeout, ""
}
