package sqlgate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/sqlgate/sqlgate/internal/hint"
	"github.com/sqlgate/sqlgate/internal/history"
	"github.com/sqlgate/sqlgate/internal/mask"
	"github.com/sqlgate/sqlgate/internal/policy"
	"github.com/sqlgate/sqlgate/internal/timeout"
)

// Gateway validates and executes untrusted SQL against PostgreSQL.
// All exported methods are safe for concurrent use from multiple goroutines.
type Gateway struct {
	config    Config
	pool      *pgxpool.Pool
	semaphore chan struct{}
	policy    *policy.Engine
	masker    *mask.Masker
	hints     *hint.Matcher
	timeouts  *timeout.Resolver
	history   history.Recorder
	metrics   *gatewayMetrics
	logger    zerolog.Logger
}

// New creates a new Gateway. connString is the PostgreSQL connection string
// (must include credentials). Panics on invalid config; returns an error
// only for runtime failures such as pool creation.
func New(ctx context.Context, connString string, config Config, logger zerolog.Logger) (*Gateway, error) {
	// --- Config validation (panics on invalid config) ---

	if connString == "" {
		panic("sqlgate: connString must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("sqlgate: pool.max_conns must be > 0")
	}
	if config.Query.DefaultRowLimit < 0 {
		panic("sqlgate: query.default_row_limit must be >= 0")
	}
	if config.Query.PreviewRowLimit < 0 {
		panic("sqlgate: query.preview_row_limit must be >= 0")
	}
	if config.HistorySize < 0 {
		panic("sqlgate: history_size must be >= 0")
	}

	// Apply defaults for zero values
	if config.Query.DefaultRowLimit == 0 {
		config.Query.DefaultRowLimit = policy.DefaultRowLimit
	}
	if config.Query.PreviewRowLimit == 0 {
		config.Query.PreviewRowLimit = 100
	}
	if config.Query.ReadTimeoutSeconds == 0 {
		config.Query.ReadTimeoutSeconds = 30
	}
	if config.Query.WriteTimeoutSeconds == 0 {
		config.Query.WriteTimeoutSeconds = 30
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.ReadTimeoutSeconds < 0 {
		panic("sqlgate: query.read_timeout_seconds must be > 0")
	}
	if config.Query.WriteTimeoutSeconds < 0 {
		panic("sqlgate: query.write_timeout_seconds must be > 0")
	}
	if config.Query.MaxSQLLength < 0 {
		panic("sqlgate: query.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("sqlgate: query.max_result_length must be > 0")
	}

	// --- Configure pgxpool ---

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if config.Pool.MaxConnLifetime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnLifetime)
		if err != nil {
			panic(fmt.Sprintf("sqlgate: invalid pool.max_conn_lifetime %q: %v", config.Pool.MaxConnLifetime, err))
		}
		poolConfig.MaxConnLifetime = d
	}
	if config.Pool.MaxConnIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnIdleTime)
		if err != nil {
			panic(fmt.Sprintf("sqlgate: invalid pool.max_conn_idle_time %q: %v", config.Pool.MaxConnIdleTime, err))
		}
		poolConfig.MaxConnIdleTime = d
	}
	if config.Pool.HealthCheckPeriod != "" {
		d, err := time.ParseDuration(config.Pool.HealthCheckPeriod)
		if err != nil {
			panic(fmt.Sprintf("sqlgate: invalid pool.health_check_period %q: %v", config.Pool.HealthCheckPeriod, err))
		}
		poolConfig.HealthCheckPeriod = d
	}

	if config.Timezone != "" {
		tz := strings.ReplaceAll(config.Timezone, "'", "''")
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, fmt.Sprintf("SET timezone = '%s'", tz)); err != nil {
				return fmt.Errorf("failed to SET timezone: %w", err)
			}
			return nil
		}
	}

	// --- Create pool ---

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// --- Initialize internal components ---

	masker, err := mask.NewMasker(mapMaskingRules(config.Masking))
	if err != nil {
		pool.Close()
		panic(fmt.Sprintf("sqlgate: %v", err))
	}
	hints, err := hint.NewMatcher(mapErrorHintRules(config.ErrorHints))
	if err != nil {
		pool.Close()
		panic(fmt.Sprintf("sqlgate: %v", err))
	}

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	timeouts, err := timeout.NewResolver(timeout.Config{
		ReadTimeout:  time.Duration(config.Query.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(config.Query.WriteTimeoutSeconds) * time.Second,
		Rules:        timeoutRules,
	})
	if err != nil {
		pool.Close()
		panic(fmt.Sprintf("sqlgate: %v", err))
	}

	recorder := config.HistoryRecorder
	if recorder == nil {
		if config.HistorySize > 0 {
			recorder = history.NewMemory(config.HistorySize)
		} else {
			recorder = history.Nop{}
		}
	}

	return &Gateway{
		config:    config,
		pool:      pool,
		semaphore: make(chan struct{}, config.Pool.MaxConns),
		policy:    policy.NewEngine(config.Query.DefaultRowLimit),
		masker:    masker,
		hints:     hints,
		timeouts:  timeouts,
		history:   recorder,
		metrics:   newGatewayMetrics(),
		logger:    logger,
	}, nil
}

// Ping verifies database connectivity.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

// History returns up to n recorded operations, newest first.
func (g *Gateway) History(n int) []HistoryEntry {
	return g.history.Recent(n)
}

// Close closes the connection pool. Accepts context for API
// forward-compatibility; pgxpool.Pool.Close() has no context-based shutdown.
func (g *Gateway) Close(ctx context.Context) {
	g.pool.Close()
}

// mapMaskingRules converts sqlgate MaskingRules to internal mask.Rules.
func mapMaskingRules(rules []MaskingRule) []mask.Rule {
	result := make([]mask.Rule, len(rules))
	for i, r := range rules {
		result[i] = mask.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}

// mapErrorHintRules converts sqlgate ErrorHintRules to internal hint.Rules.
func mapErrorHintRules(rules []ErrorHintRule) []hint.Rule {
	result := make([]hint.Rule, len(rules))
	for i, r := range rules {
		result[i] = hint.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}
