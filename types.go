package sqlgate

import "github.com/sqlgate/sqlgate/internal/diff"

// ExecuteInput is the input for Execute.
type ExecuteInput struct {
	SQL string `json:"sql"`
}

// ExecuteOutput is the result of the full validate-and-execute pipeline.
// Policy rejections and database failures share this one shape: Success is
// false and Error carries the rejection or engine message. Hint, when
// present, is derived guidance — the error message itself is never altered.
type ExecuteOutput struct {
	RequestID    string                   `json:"request_id"`
	Success      bool                     `json:"success"`
	Kind         string                   `json:"kind,omitempty"`
	Columns      []string                 `json:"columns,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowsReturned int                      `json:"rows_returned"`
	RowsAffected int64                    `json:"rows_affected"`
	ExecutedSQL  string                   `json:"executed_sql,omitempty"`
	Truncated    bool                     `json:"truncated,omitempty"`
	Error        string                   `json:"error,omitempty"`
	Hint         string                   `json:"hint,omitempty"`
}

// PreviewInput is the input for Preview. Limit optionally caps the preview
// rows below the configured default.
type PreviewInput struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit,omitempty"`
}

// PreviewOutput is the result of a non-destructive preview. AffectedRows is
// the full count of rows the statement would touch; PreviewRows is capped.
type PreviewOutput struct {
	RequestID    string                   `json:"request_id"`
	Success      bool                     `json:"success"`
	Kind         string                   `json:"kind,omitempty"`
	PreviewSQL   string                   `json:"preview_sql,omitempty"`
	PreviewRows  []map[string]interface{} `json:"preview_rows"`
	AffectedRows int                      `json:"affected_rows"`
	Error        string                   `json:"error,omitempty"`
	Hint         string                   `json:"hint,omitempty"`
}

// DiffInput holds the two row snapshots to compare.
type DiffInput struct {
	Before []map[string]interface{} `json:"before"`
	After  []map[string]interface{} `json:"after"`
}

// ColumnChange describes a column whose observed value list differs between
// the two snapshots.
type ColumnChange = diff.ColumnChange

// DiffOutput reports row-level set differences plus column-level changes.
// Rows are deduplicated by structural equality before comparison.
type DiffOutput struct {
	RowsAdded     int                      `json:"rows_added"`
	RowsRemoved   int                      `json:"rows_removed"`
	RowsUnchanged int                      `json:"rows_unchanged"`
	AddedRows     []map[string]interface{} `json:"added_rows"`
	RemovedRows   []map[string]interface{} `json:"removed_rows"`
	Columns       map[string]ColumnChange  `json:"columns,omitempty"`
	Summary       string                   `json:"summary"`
}
