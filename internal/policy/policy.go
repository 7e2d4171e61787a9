// Package policy is the security gate in front of statement execution. It
// rejects destructive constructs and statement batching, requires a WHERE
// clause on DELETE, and bounds unbounded SELECTs with a row limit. Rules run
// in a fixed order and the first failing rule short-circuits.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/classify"
)

// DefaultRowLimit is the LIMIT appended to SELECTs that carry none.
const DefaultRowLimit = 100

// Rule names used for metrics and logging. The user-visible rejection text
// lives in the deny rules and reject messages below.
const (
	RuleDropDatabase       = "drop_database"
	RuleTruncate           = "truncate"
	RuleMultiStatement     = "multi_statement"
	RuleDeleteWithoutWhere = "delete_without_where"
	RuleUnknownStatement   = "unknown_statement"
)

// Outcome is the result of validating one statement. Rewritten is populated
// only when the engine had to append a bound; empty means the original text
// is safe to execute verbatim.
type Outcome struct {
	Accepted  bool
	Reason    string
	Rule      string
	Kind      classify.Kind
	Rewritten string
}

// denyRules are scanned in order over the comment-stripped text. Each carries
// a fixed human-readable rejection message.
var denyRules = []struct {
	name    string
	re      *regexp.Regexp
	message string
}{
	{RuleDropDatabase, regexp.MustCompile(`(?i)\bdrop\s+database\b`), "DROP DATABASE is not allowed"},
	{RuleTruncate, regexp.MustCompile(`(?i)\btruncate\b`), "TRUNCATE is not allowed"},
	{RuleMultiStatement, regexp.MustCompile(`(?is);.*?\b(?:select|insert|update|delete|drop|alter|truncate)\b`), "multiple statements are not allowed"},
}

var (
	whereRe    = regexp.MustCompile(`(?i)\bwhere\b`)
	limitRe    = regexp.MustCompile(`(?i)\blimit\b`)
	compoundRe = regexp.MustCompile(`(?i)\b(?:union|intersect|except)\b`)
)

// Engine validates statements against the fixed rule set. Safe for
// concurrent use.
type Engine struct {
	rowLimit int
}

// NewEngine creates an Engine that injects rowLimit into unbounded SELECTs.
// A rowLimit of 0 means DefaultRowLimit. Panics if rowLimit is negative.
func NewEngine(rowLimit int) *Engine {
	if rowLimit < 0 {
		panic(fmt.Sprintf("policy: row limit must be >= 0, got %d", rowLimit))
	}
	if rowLimit == 0 {
		rowLimit = DefaultRowLimit
	}
	return &Engine{rowLimit: rowLimit}
}

// RowLimit returns the limit the engine injects into unbounded SELECTs.
func (e *Engine) RowLimit() int {
	return e.rowLimit
}

// Validate classifies sql and applies the policy rules in order: denylist
// scan, DELETE-requires-WHERE, kind determination, SELECT bounding. On
// success Kind is always populated; Rewritten only when a limit was injected.
func (e *Engine) Validate(sql string) Outcome {
	st := classify.Classify(sql)

	for _, rule := range denyRules {
		if rule.re.MatchString(st.Cleaned) {
			return Outcome{Reason: rule.message, Rule: rule.name}
		}
	}

	if st.Kind == classify.KindDelete && !whereRe.MatchString(st.Cleaned) {
		return Outcome{
			Reason: "DELETE statements must include a WHERE clause",
			Rule:   RuleDeleteWithoutWhere,
		}
	}

	if st.Kind == classify.KindUnknown {
		return Outcome{
			Reason: "could not determine statement type",
			Rule:   RuleUnknownStatement,
		}
	}

	out := Outcome{Accepted: true, Kind: st.Kind}
	if st.Kind == classify.KindSelect && !limitRe.MatchString(st.Cleaned) {
		out.Rewritten = e.injectLimit(st)
	}
	return out
}

// injectLimit appends a LIMIT clause to a SELECT that has none. Compound
// queries (UNION/INTERSECT/EXCEPT) are wrapped whole — appending LIMIT to
// the last branch only would change the statement's meaning. Predicates are
// never dropped or reordered.
func (e *Engine) injectLimit(st classify.Statement) string {
	trimmed := strings.TrimRight(st.Raw, " \t\r\n;")
	if compoundRe.MatchString(st.Cleaned) {
		return fmt.Sprintf("(%s) LIMIT %d", trimmed, e.rowLimit)
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, e.rowLimit)
}
