package sqlgate_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	sqlgate "github.com/sqlgate/sqlgate"
)

// newTestGateway builds a Gateway against a connection string that parses but
// points nowhere. Policy rejections, previews of INSERT, diffs, and history
// never touch the pool, so these tests need no database.
func newTestGateway(t *testing.T, config sqlgate.Config) *sqlgate.Gateway {
	t.Helper()
	ctx := context.Background()
	gw, err := sqlgate.New(ctx, dummyConnString, config, testLogger())
	if err != nil {
		t.Fatalf("failed to create gateway: %v", err)
	}
	t.Cleanup(func() { gw.Close(ctx) })
	return gw
}

func assertRejected(t *testing.T, out *sqlgate.ExecuteOutput, errSubstr string) {
	t.Helper()
	if out.Success {
		t.Fatal("expected rejection, got success")
	}
	if !strings.Contains(out.Error, errSubstr) {
		t.Fatalf("expected error containing %q, got %q", errSubstr, out.Error)
	}
	if out.RequestID == "" {
		t.Fatal("expected non-empty request ID")
	}
}

// --- Execute: policy rejections ---

func TestExecuteRejectsDropDatabase(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "DROP DATABASE production"})
	assertRejected(t, out, "DROP DATABASE is not allowed")
}

func TestExecuteRejectsTruncate(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "TRUNCATE audit_log"})
	assertRejected(t, out, "TRUNCATE is not allowed")
}

func TestExecuteRejectsMultipleStatements(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "SELECT 1; DELETE FROM users WHERE id = 1"})
	assertRejected(t, out, "multiple statements")
}

func TestExecuteRejectsDeleteWithoutWhere(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "DELETE FROM users"})
	assertRejected(t, out, "WHERE")
}

func TestExecuteRejectsUnknownStatement(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "GRANT ALL ON users TO intern"})
	assertRejected(t, out, "statement type")
}

func TestExecuteRejectsOversizedSQL(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.MaxSQLLength = 10
	gw := newTestGateway(t, config)
	out := gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "SELECT * FROM a_table_name_longer_than_the_cap"})
	assertRejected(t, out, "too long")
}

func TestExecuteCancelledContext(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := gw.Execute(ctx, sqlgate.ExecuteInput{SQL: "SELECT 1"})
	if out.Success {
		t.Fatal("expected failure with cancelled context")
	}
	if out.Error == "" {
		t.Fatal("expected error message")
	}
}

// --- Preview ---

func TestPreviewRejectsDropDatabase(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Preview(context.Background(), sqlgate.PreviewInput{SQL: "DROP DATABASE production"})
	if out.Success {
		t.Fatal("expected rejection, got success")
	}
	if !strings.Contains(out.Error, "DROP DATABASE is not allowed") {
		t.Fatalf("unexpected error: %q", out.Error)
	}
}

func TestPreviewInsertReturnsEmpty(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Preview(context.Background(), sqlgate.PreviewInput{SQL: "INSERT INTO users (name) VALUES ('alice')"})
	if !out.Success {
		t.Fatalf("expected success, got error %q", out.Error)
	}
	if out.Kind != "INSERT" {
		t.Errorf("expected kind INSERT, got %q", out.Kind)
	}
	if len(out.PreviewRows) != 0 {
		t.Errorf("expected no preview rows, got %d", len(out.PreviewRows))
	}
	if out.AffectedRows != 0 {
		t.Errorf("expected 0 affected rows, got %d", out.AffectedRows)
	}
}

// --- History ---

func TestHistoryRecordsRejections(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.HistorySize = 10
	gw := newTestGateway(t, config)

	gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "TRUNCATE users"})
	gw.Preview(context.Background(), sqlgate.PreviewInput{SQL: "DELETE FROM users"})

	entries := gw.History(10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Mode != "preview" {
		t.Errorf("expected newest entry to be preview, got %q", entries[0].Mode)
	}
	if entries[1].Mode != "execute" {
		t.Errorf("expected oldest entry to be execute, got %q", entries[1].Mode)
	}
	for _, e := range entries {
		if e.Success {
			t.Errorf("expected failed entry, got success for %q", e.SQL)
		}
		if e.Error == "" {
			t.Errorf("expected error message for %q", e.SQL)
		}
		if e.ID == "" {
			t.Errorf("expected request ID for %q", e.SQL)
		}
	}
}

func TestHistoryDisabledByDefault(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "TRUNCATE users"})
	if entries := gw.History(10); len(entries) != 0 {
		t.Fatalf("expected no history entries, got %d", len(entries))
	}
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []sqlgate.HistoryEntry
}

func (c *captureRecorder) Append(e sqlgate.HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) Recent(n int) []sqlgate.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sqlgate.HistoryEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func TestCustomHistoryRecorder(t *testing.T) {
	t.Parallel()
	recorder := &captureRecorder{}
	config := validConfig()
	config.HistoryRecorder = recorder
	gw := newTestGateway(t, config)

	gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "DROP DATABASE x"})

	entries := gw.History(10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry in injected recorder, got %d", len(entries))
	}
	if entries[0].Mode != "execute" {
		t.Errorf("expected mode execute, got %q", entries[0].Mode)
	}
}

// --- Metrics ---

func TestRejectionMetricsRecorded(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	gw.Execute(context.Background(), sqlgate.ExecuteInput{SQL: "TRUNCATE users"})

	families, err := gw.MetricsRegistry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "sqlgate_rejections_total" {
			found = true
			if len(mf.GetMetric()) == 0 {
				t.Error("expected at least one rejection sample")
			}
		}
	}
	if !found {
		t.Fatal("sqlgate_rejections_total not found in registry")
	}
}

// --- Diff ---

func row(pairs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1]
	}
	return m
}

func TestDiffAddedAndRemoved(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Diff(sqlgate.DiffInput{
		Before: []map[string]interface{}{
			row("id", 1, "name", "alice"),
			row("id", 2, "name", "bob"),
		},
		After: []map[string]interface{}{
			row("id", 2, "name", "bob"),
			row("id", 3, "name", "carol"),
		},
	})
	if out.RowsAdded != 1 || out.RowsRemoved != 1 || out.RowsUnchanged != 1 {
		t.Fatalf("expected 1 added, 1 removed, 1 unchanged; got %d/%d/%d",
			out.RowsAdded, out.RowsRemoved, out.RowsUnchanged)
	}
	if len(out.AddedRows) != 1 || len(out.RemovedRows) != 1 {
		t.Fatalf("expected 1 sample each side, got %d added, %d removed",
			len(out.AddedRows), len(out.RemovedRows))
	}
	if out.Summary != "+1 rows added, -1 rows removed" {
		t.Errorf("unexpected summary: %q", out.Summary)
	}
}

func TestDiffNoChanges(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	rows := []map[string]interface{}{row("id", 1)}
	out := gw.Diff(sqlgate.DiffInput{Before: rows, After: rows})
	if out.RowsAdded != 0 || out.RowsRemoved != 0 {
		t.Fatalf("expected no changes, got %d added, %d removed", out.RowsAdded, out.RowsRemoved)
	}
	if out.Summary != "no changes" {
		t.Errorf("unexpected summary: %q", out.Summary)
	}
}

func TestDiffColumnChanges(t *testing.T) {
	t.Parallel()
	gw := newTestGateway(t, validConfig())
	out := gw.Diff(sqlgate.DiffInput{
		Before: []map[string]interface{}{row("status", "pending")},
		After:  []map[string]interface{}{row("status", "shipped")},
	})
	change, ok := out.Columns["status"]
	if !ok {
		t.Fatalf("expected status column change, got %v", out.Columns)
	}
	if len(change.Before) != 1 || change.Before[0] != "pending" {
		t.Errorf("unexpected before values: %v", change.Before)
	}
	if len(change.After) != 1 || change.After[0] != "shipped" {
		t.Errorf("unexpected after values: %v", change.After)
	}
}
