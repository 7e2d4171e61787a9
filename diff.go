package sqlgate

import (
	"fmt"
	"strings"

	"github.com/sqlgate/sqlgate/internal/diff"
)

// Diff computes row- and column-level differences between two row snapshots,
// typically captured before and after an executed write. Rows are
// deduplicated by structural equality — a row is the unordered set of its
// (column, value) pairs. Purely computational; nothing touches the database.
func (g *Gateway) Diff(input DiffInput) *DiffOutput {
	rowDiff := diff.Rows(input.Before, input.After)
	out := &DiffOutput{
		RowsAdded:     rowDiff.RowsAdded,
		RowsRemoved:   rowDiff.RowsRemoved,
		RowsUnchanged: rowDiff.RowsUnchanged,
		AddedRows:     rowDiff.SampleAdded,
		RemovedRows:   rowDiff.SampleRemoved,
		Columns:       diff.Columns(input.Before, input.After),
	}
	out.Summary = diffSummary(out.RowsAdded, out.RowsRemoved)
	return out
}

// diffSummary renders a short human-readable change summary.
func diffSummary(added, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d rows added", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d rows removed", removed))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
