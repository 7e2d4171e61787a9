package sqlgate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlgate/sqlgate/internal/classify"
	"github.com/sqlgate/sqlgate/internal/history"
)

// Execute runs the full pipeline for one statement: classify, validate,
// rewrite if the policy injected a bound, then execute on the read or write
// path. Writes run in exactly one transaction that is committed on success
// and rolled back on any error before commit — a failed write leaves the
// database byte-identical to before the call.
//
// All failures (policy rejections, Postgres errors, timeouts) are converted
// into output.Error; callers only check output.Success, never a Go error.
func (g *Gateway) Execute(ctx context.Context, input ExecuteInput) *ExecuteOutput {
	startTime := time.Now()
	requestID := uuid.NewString()
	sql := input.SQL

	// 1. Acquire semaphore (respects context cancellation to prevent deadlock)
	select {
	case g.semaphore <- struct{}{}:
	case <-ctx.Done():
		return g.executeFailure(requestID, classify.KindUnknown, sql, startTime,
			fmt.Errorf("failed to acquire query slot: all %d slots are in use, context cancelled while waiting: %w", cap(g.semaphore), ctx.Err()))
	}
	defer func() { <-g.semaphore }()

	// 2. Check SQL length before any processing
	if len(sql) > g.config.Query.MaxSQLLength {
		return g.executeFailure(requestID, classify.KindUnknown, sql, startTime,
			fmt.Errorf("SQL statement too long: %d bytes exceeds maximum of %d bytes", len(sql), g.config.Query.MaxSQLLength))
	}

	// 3. Classify and validate. The kind is decided here, once, and never
	// re-derived from rewritten text.
	outcome := g.policy.Validate(sql)
	if !outcome.Accepted {
		return g.rejection(requestID, "execute", sql, startTime, outcome.Rule, outcome.Reason)
	}

	runSQL := sql
	if outcome.Rewritten != "" {
		runSQL = outcome.Rewritten
	}
	kind := outcome.Kind
	write := kind.IsWrite()

	// 4. Determine timeout and acquire a request-scoped connection
	d, timeoutRule := g.timeouts.Resolve(runSQL, write)
	queryCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	conn, err := g.pool.Acquire(queryCtx)
	if err != nil {
		return g.executeFailure(requestID, kind, sql, startTime, err)
	}
	defer conn.Release()

	// 5. Execute on the read or write path
	var result *queryResult
	if write {
		result, err = g.runWrite(ctx, queryCtx, conn, runSQL)
	} else {
		result, err = g.runRead(queryCtx, conn, runSQL)
	}
	if err != nil {
		return g.executeFailure(requestID, kind, sql, startTime, err)
	}

	out := &ExecuteOutput{
		RequestID:    requestID,
		Success:      true,
		Kind:         string(kind),
		Columns:      result.columns,
		Rows:         g.masker.Apply(result.rows),
		RowsReturned: len(result.rows),
	}
	if write {
		out.RowsAffected = result.rowsAffected
	}
	if outcome.Rewritten != "" {
		out.ExecutedSQL = outcome.Rewritten
	}
	g.truncateIfNeeded(out)

	g.metrics.observeExecuted(string(kind), true, "execute", time.Since(startTime))
	g.record("execute", requestID, sql, kind, true, "", out.RowsReturned, out.RowsAffected, startTime)

	logEvent := g.logger.Info().
		Str("request_id", requestID).
		Str("sql", truncateForLog(runSQL, 200)).
		Str("kind", string(kind)).
		Dur("duration", time.Since(startTime)).
		Int("rows_returned", out.RowsReturned).
		Int64("rows_affected", out.RowsAffected)
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	if outcome.Rewritten != "" {
		logEvent = logEvent.Bool("limit_injected", true)
	}
	logEvent.Msg("statement executed")

	return out
}

// queryResult is the collected output of one statement execution.
type queryResult struct {
	columns      []string
	rows         []map[string]interface{}
	rowsAffected int64
}

// runRead executes a read statement directly on the connection and fetches
// all rows eagerly. No commit or rollback is involved; the connection is
// left usable for the caller to release.
func (g *Gateway) runRead(ctx context.Context, conn *pgxpool.Conn, sql string) (*queryResult, error) {
	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// runWrite executes a write statement in exactly one transaction. On any
// error during execution, row collection, or commit, the deferred rollback
// undoes the whole statement; after a successful commit the rollback is a
// no-op. At most one of {commit, rollback} takes effect per invocation.
func (g *Gateway) runWrite(parent, ctx context.Context, conn *pgxpool.Conn, sql string) (*queryResult, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	// Rollback uses the parent context: if the statement timed out, ctx is
	// already cancelled and the rollback itself would fail.
	defer tx.Rollback(parent)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	result, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// collectRows reads all rows eagerly and returns a queryResult. For
// statements without a result set, the engine-reported affected count comes
// from the command tag.
func collectRows(rows pgx.Rows) (*queryResult, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]interface{}, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &queryResult{
		columns:      columns,
		rows:         resultRows,
		rowsAffected: rows.CommandTag().RowsAffected(),
	}, nil
}

// convertValue converts a pgx-returned value to a JSON-friendly Go type.
func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return convertFloat(float64(val))
	case float64:
		return convertFloat(val)
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea, xml
		return base64.StdEncoding.EncodeToString(val)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, inner := range val {
			result[k] = convertValue(inner)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, inner := range val {
			result[i] = convertValue(inner)
		}
		return result
	default:
		return val
	}
}

func convertFloat(f float64) interface{} {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return f
}

// rejection builds the structured output for a policy rejection. The
// statement never reached the database.
func (g *Gateway) rejection(requestID, mode, sql string, start time.Time, rule, reason string) *ExecuteOutput {
	g.logger.Warn().
		Str("request_id", requestID).
		Str("sql", truncateForLog(sql, 200)).
		Str("rule", rule).
		Msg("statement rejected")
	g.metrics.observeRejected(rule, mode, time.Since(start))
	g.record(mode, requestID, sql, classify.KindUnknown, false, reason, 0, 0, start)
	return &ExecuteOutput{RequestID: requestID, Error: reason}
}

// executeFailure converts any error into an ExecuteOutput with the error
// message and any matching hints.
func (g *Gateway) executeFailure(requestID string, kind classify.Kind, sql string, start time.Time, err error) *ExecuteOutput {
	errMsg := err.Error()
	out := &ExecuteOutput{RequestID: requestID, Error: errMsg, Hint: g.hints.Match(errMsg)}
	if kind != classify.KindUnknown {
		out.Kind = string(kind)
	}

	logEvent := g.logger.Error().Err(err).Str("request_id", requestID)
	if patterns := g.hints.Patterns(errMsg); len(patterns) > 0 {
		logEvent = logEvent.Strs("error_hints", patterns)
	}
	logEvent.Msg("statement failed")

	g.metrics.observeExecuted(string(kind), false, "execute", time.Since(start))
	g.record("execute", requestID, sql, kind, false, errMsg, 0, 0, start)
	return out
}

// record appends one entry to the history recorder.
func (g *Gateway) record(mode, requestID, sql string, kind classify.Kind, success bool, errMsg string, returned int, affected int64, start time.Time) {
	g.history.Append(history.Entry{
		ID:           requestID,
		SQL:          truncateForLog(sql, 500),
		Kind:         string(kind),
		Mode:         mode,
		Success:      success,
		Error:        errMsg,
		RowsReturned: returned,
		RowsAffected: affected,
		Duration:     time.Since(start),
		At:           start,
	})
}

// truncateIfNeeded drops rows from the tail until the serialized payload
// fits MaxResultLength (in characters), marking the output as truncated.
func (g *Gateway) truncateIfNeeded(out *ExecuteOutput) {
	for len(out.Rows) > 0 {
		jsonBytes, _ := json.Marshal(out.Rows)
		if utf8.RuneCountInString(string(jsonBytes)) <= g.config.Query.MaxResultLength {
			return
		}
		out.Rows = out.Rows[:len(out.Rows)-1]
		out.RowsReturned = len(out.Rows)
		out.Truncated = true
	}
}

// truncateForLog truncates a string for log output to avoid oversized entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
