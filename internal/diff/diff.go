// Package diff computes row- and column-level differences between two row
// snapshots, typically taken before and after a write. It is a diagnostic
// utility: nothing here affects execution correctness.
package diff

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// maxRowSamples bounds the added/removed sample rows in a Result.
	maxRowSamples = 10
	// maxColumnExamples bounds the example values per side in a ColumnChange.
	maxColumnExamples = 5
)

// Result summarizes structural row differences between two snapshots. Rows
// are deduplicated by structural equality, so the counts describe sets.
type Result struct {
	RowsAdded     int                      `json:"rows_added"`
	RowsRemoved   int                      `json:"rows_removed"`
	RowsUnchanged int                      `json:"rows_unchanged"`
	SampleAdded   []map[string]interface{} `json:"added_rows"`
	SampleRemoved []map[string]interface{} `json:"removed_rows"`
}

// ColumnChange describes a column whose observed value list differs between
// the two snapshots, with bounded example values from each side.
type ColumnChange struct {
	Before []interface{} `json:"before"`
	After  []interface{} `json:"after"`
}

// rowKey canonicalizes a row as its sorted (column, value) pairs. Two rows
// are equal iff that pair set is equal; column order in the source maps is
// irrelevant.
func rowKey(row map[string]interface{}) string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var sb strings.Builder
	for _, c := range cols {
		sb.WriteString(c)
		sb.WriteByte(0x1f)
		fmt.Fprintf(&sb, "%v", row[c])
		sb.WriteByte(0x1e)
	}
	return sb.String()
}

// index deduplicates rows by structural key.
func index(rows []map[string]interface{}) map[string]map[string]interface{} {
	m := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		m[rowKey(row)] = row
	}
	return m
}

// Rows computes the set difference between two snapshots: added rows appear
// only in after, removed rows only in before. Samples are bounded and
// returned in a deterministic order.
func Rows(before, after []map[string]interface{}) Result {
	beforeSet := index(before)
	afterSet := index(after)

	var result Result
	for _, key := range sortedKeys(afterSet) {
		if _, ok := beforeSet[key]; ok {
			result.RowsUnchanged++
			continue
		}
		result.RowsAdded++
		if len(result.SampleAdded) < maxRowSamples {
			result.SampleAdded = append(result.SampleAdded, afterSet[key])
		}
	}
	for _, key := range sortedKeys(beforeSet) {
		if _, ok := afterSet[key]; ok {
			continue
		}
		result.RowsRemoved++
		if len(result.SampleRemoved) < maxRowSamples {
			result.SampleRemoved = append(result.SampleRemoved, beforeSet[key])
		}
	}
	return result
}

// Columns compares, for the union of columns appearing in either snapshot,
// the full ordered value list per column. A column is reported iff its value
// lists differ; example values are bounded per side. Empty snapshots on
// either side yield no column changes.
func Columns(before, after []map[string]interface{}) map[string]ColumnChange {
	changes := make(map[string]ColumnChange)
	if len(before) == 0 || len(after) == 0 {
		return changes
	}

	columns := make(map[string]struct{})
	for _, row := range before {
		for c := range row {
			columns[c] = struct{}{}
		}
	}
	for _, row := range after {
		for c := range row {
			columns[c] = struct{}{}
		}
	}

	for column := range columns {
		beforeVals := columnValues(before, column)
		afterVals := columnValues(after, column)
		if valuesEqual(beforeVals, afterVals) {
			continue
		}
		changes[column] = ColumnChange{
			Before: clip(beforeVals, maxColumnExamples),
			After:  clip(afterVals, maxColumnExamples),
		}
	}
	return changes
}

func columnValues(rows []map[string]interface{}, column string) []interface{} {
	var vals []interface{}
	for _, row := range rows {
		if v, ok := row[column]; ok {
			vals = append(vals, v)
		}
	}
	return vals
}

func valuesEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprintf("%v", a[i]) != fmt.Sprintf("%v", b[i]) {
			return false
		}
	}
	return true
}

func clip(vals []interface{}, n int) []interface{} {
	if len(vals) > n {
		return vals[:n]
	}
	return vals
}

func sortedKeys(m map[string]map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
