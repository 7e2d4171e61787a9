// Package sqlgate executes untrusted SQL text against PostgreSQL behind a
// validation pipeline: every statement is classified, checked against a
// security policy, optionally rewritten (row-limit injection, write-to-read
// preview transformation), and only then executed under strict transactional
// discipline. Destructive constructs, statement batching, and unbounded
// SELECTs never reach the database.
//
// The three public operations are Execute (full pipeline, commits writes),
// Preview (runs a read-only equivalent of a write and always rolls back),
// and Diff (structural before/after row comparison).
//
// # Library Usage
//
//	gw, err := sqlgate.New(ctx, connString, sqlgate.Config{
//		Pool: sqlgate.PoolConfig{MaxConns: 10},
//		Query: sqlgate.QueryConfig{
//			DefaultRowLimit:     100,
//			ReadTimeoutSeconds:  30,
//			WriteTimeoutSeconds: 30,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer gw.Close(ctx)
//
//	out := gw.Execute(ctx, sqlgate.ExecuteInput{SQL: "SELECT * FROM users"})
//	if !out.Success {
//		log.Println(out.Error)
//	}
//
// All failures — policy rejections, Postgres errors, timeouts — are
// converted into the output struct's Error field. Callers never receive a
// raw error from Execute, Preview, or Diff.
package sqlgate
