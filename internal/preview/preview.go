// Package preview rewrites write statements into equivalent read statements
// so their effect can be inspected without applying them. This is bounded
// text rewriting, not parsing: the governing keywords are matched in any
// case and across irregular whitespace, and everything inside the extracted
// WHERE clause is treated as opaque text.
package preview

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/classify"
)

var (
	// updateRe captures the target table and the WHERE clause of an UPDATE.
	updateRe     = regexp.MustCompile(`(?is)^\s*update\s+(\S+)\s.*?\bwhere\s+(.+?);?\s*$`)
	updateHeadRe = regexp.MustCompile(`(?i)^\s*update\b`)
	setWhereRe   = regexp.MustCompile(`(?is)\bset\s.*?\swhere\b`)
	deleteFromRe = regexp.MustCompile(`(?i)^\s*delete\s+from\b`)
)

// ToSelect rewrites an UPDATE or DELETE into a SELECT over the rows the
// statement would touch. Other kinds pass through unchanged; INSERT has no
// meaningful non-destructive preview and is reported upstream as zero rows.
//
// The UPDATE fallback (no extractable table + WHERE) is a lossy best-effort
// substitution: a SET clause containing a literal WHERE-like substring can
// confuse it. Callers treat the result as diagnostic, not authoritative.
func ToSelect(sql string, kind classify.Kind) string {
	switch kind {
	case classify.KindUpdate:
		if m := updateRe.FindStringSubmatch(sql); m != nil {
			return fmt.Sprintf("SELECT * FROM %s WHERE %s", m[1], strings.TrimSpace(m[2]))
		}
		out := updateHeadRe.ReplaceAllString(sql, "SELECT *")
		return setWhereRe.ReplaceAllString(out, " WHERE")
	case classify.KindDelete:
		return deleteFromRe.ReplaceAllString(sql, "SELECT * FROM")
	default:
		return sql
	}
}
