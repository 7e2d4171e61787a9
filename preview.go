package sqlgate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sqlgate/sqlgate/internal/classify"
	"github.com/sqlgate/sqlgate/internal/preview"
)

// Preview runs the non-destructive inspection pipeline: the statement is
// classified and validated exactly like Execute, write statements are
// rewritten into equivalent SELECTs, and the result is fetched inside a
// transaction that is always rolled back. Preview never commits, even when
// previewing a write.
//
// INSERT has no meaningful non-destructive preview and reports zero preview
// rows by convention.
func (g *Gateway) Preview(ctx context.Context, input PreviewInput) *PreviewOutput {
	startTime := time.Now()
	requestID := uuid.NewString()
	sql := input.SQL

	select {
	case g.semaphore <- struct{}{}:
	case <-ctx.Done():
		return g.previewFailure(requestID, classify.KindUnknown, sql, startTime,
			fmt.Errorf("failed to acquire query slot: all %d slots are in use, context cancelled while waiting: %w", cap(g.semaphore), ctx.Err()))
	}
	defer func() { <-g.semaphore }()

	if len(sql) > g.config.Query.MaxSQLLength {
		return g.previewFailure(requestID, classify.KindUnknown, sql, startTime,
			fmt.Errorf("SQL statement too long: %d bytes exceeds maximum of %d bytes", len(sql), g.config.Query.MaxSQLLength))
	}

	outcome := g.policy.Validate(sql)
	if !outcome.Accepted {
		exec := g.rejection(requestID, "preview", sql, startTime, outcome.Rule, outcome.Reason)
		return &PreviewOutput{RequestID: exec.RequestID, Error: exec.Error}
	}
	kind := outcome.Kind

	if kind == classify.KindInsert {
		// Known limitation: nothing to show before the rows exist.
		g.record("preview", requestID, sql, kind, true, "", 0, 0, startTime)
		return &PreviewOutput{
			RequestID:   requestID,
			Success:     true,
			Kind:        string(kind),
			PreviewRows: []map[string]interface{}{},
		}
	}

	previewSQL := preview.ToSelect(sql, kind)
	if kind == classify.KindSelect && outcome.Rewritten != "" {
		previewSQL = outcome.Rewritten
	}

	limit := g.config.Query.PreviewRowLimit
	if input.Limit > 0 && input.Limit < limit {
		limit = input.Limit
	}

	d, timeoutRule := g.timeouts.Resolve(previewSQL, false)
	queryCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	conn, err := g.pool.Acquire(queryCtx)
	if err != nil {
		return g.previewFailure(requestID, kind, sql, startTime, err)
	}
	defer conn.Release()

	// The preview runs inside a transaction that is rolled back
	// unconditionally, so nothing a rewritten (or passed-through) statement
	// does can ever be committed.
	tx, err := conn.Begin(queryCtx)
	if err != nil {
		return g.previewFailure(requestID, kind, sql, startTime, err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(queryCtx, previewSQL)
	if err != nil {
		return g.previewFailure(requestID, kind, sql, startTime, err)
	}
	result, err := collectRows(rows)
	if err != nil {
		return g.previewFailure(requestID, kind, sql, startTime, err)
	}
	if err := tx.Rollback(ctx); err != nil {
		return g.previewFailure(requestID, kind, sql, startTime, err)
	}

	affected := len(result.rows)
	previewRows := result.rows
	if len(previewRows) > limit {
		previewRows = previewRows[:limit]
	}

	out := &PreviewOutput{
		RequestID:    requestID,
		Success:      true,
		Kind:         string(kind),
		PreviewSQL:   previewSQL,
		PreviewRows:  g.masker.Apply(previewRows),
		AffectedRows: affected,
	}

	g.metrics.observeExecuted(string(kind), true, "preview", time.Since(startTime))
	g.record("preview", requestID, sql, kind, true, "", len(previewRows), 0, startTime)

	logEvent := g.logger.Info().
		Str("request_id", requestID).
		Str("sql", truncateForLog(previewSQL, 200)).
		Str("kind", string(kind)).
		Dur("duration", time.Since(startTime)).
		Int("affected_rows", affected)
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	logEvent.Msg("statement previewed")

	return out
}

// previewFailure converts any error into a PreviewOutput with the error
// message and any matching hints.
func (g *Gateway) previewFailure(requestID string, kind classify.Kind, sql string, start time.Time, err error) *PreviewOutput {
	errMsg := err.Error()
	out := &PreviewOutput{
		RequestID:   requestID,
		PreviewRows: []map[string]interface{}{},
		Error:       errMsg,
		Hint:        g.hints.Match(errMsg),
	}
	if kind != classify.KindUnknown {
		out.Kind = string(kind)
	}

	logEvent := g.logger.Error().Err(err).Str("request_id", requestID)
	if patterns := g.hints.Patterns(errMsg); len(patterns) > 0 {
		logEvent = logEvent.Strs("error_hints", patterns)
	}
	logEvent.Msg("preview failed")

	g.metrics.observeExecuted(string(kind), false, "preview", time.Since(start))
	g.record("preview", requestID, sql, kind, false, errMsg, 0, 0, start)
	return out
}
