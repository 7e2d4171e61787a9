// Package classify strips SQL comments and determines the coarse statement
// kind of a query. Classification is pure text pattern matching — there is
// deliberately no SQL grammar here. The comment-stripped form is what every
// downstream decision (policy checks, rewrites) operates on, so comments
// cannot hide or simulate keywords.
package classify

import "regexp"

// Kind is the coarse SQL operation category of a statement.
type Kind string

const (
	KindSelect  Kind = "SELECT"
	KindInsert  Kind = "INSERT"
	KindUpdate  Kind = "UPDATE"
	KindDelete  Kind = "DELETE"
	KindAlter   Kind = "ALTER"
	KindUnknown Kind = "UNKNOWN"
)

// IsWrite reports whether statements of this kind modify database state.
func (k Kind) IsWrite() bool {
	switch k {
	case KindInsert, KindUpdate, KindDelete, KindAlter:
		return true
	}
	return false
}

// IsRead reports whether statements of this kind only read data.
func (k Kind) IsRead() bool {
	return k == KindSelect
}

// Statement is an immutable classified SQL statement. Kind is decided exactly
// once, from Cleaned, and is never re-derived from rewritten text.
type Statement struct {
	Raw     string
	Cleaned string
	Kind    Kind
}

var (
	lineCommentRe  = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// kindPatterns is ordered: first match wins.
var kindPatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindSelect, regexp.MustCompile(`(?i)^\s*select\b`)},
	{KindInsert, regexp.MustCompile(`(?i)^\s*insert\b`)},
	{KindUpdate, regexp.MustCompile(`(?i)^\s*update\b`)},
	{KindDelete, regexp.MustCompile(`(?i)^\s*delete\b`)},
	{KindAlter, regexp.MustCompile(`(?i)^\s*alter\b`)},
}

// StripComments removes line comments (`-- ...` to end of line) and block
// comments (`/* ... */`, including multi-line) from sql.
func StripComments(sql string) string {
	sql = lineCommentRe.ReplaceAllString(sql, "")
	return blockCommentRe.ReplaceAllString(sql, "")
}

// Classify strips comments from sql and determines its statement kind from
// the first significant keyword, case-insensitively. Unrecognized statements
// get KindUnknown. Pure and deterministic, no side effects.
func Classify(sql string) Statement {
	cleaned := StripComments(sql)
	for _, p := range kindPatterns {
		if p.re.MatchString(cleaned) {
			return Statement{Raw: sql, Cleaned: cleaned, Kind: p.kind}
		}
	}
	return Statement{Raw: sql, Cleaned: cleaned, Kind: KindUnknown}
}
