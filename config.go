package sqlgate

import "github.com/sqlgate/sqlgate/internal/history"

// Config is the base configuration used by library mode via New().
type Config struct {
	Pool        PoolConfig      `json:"pool"`
	Query       QueryConfig     `json:"query"`
	ErrorHints  []ErrorHintRule `json:"error_hints"`
	Masking     []MaskingRule   `json:"masking"`
	HistorySize int             `json:"history_size"`
	Timezone    string          `json:"timezone"`

	// Library mode: injected history recorder (not serializable). When nil,
	// a bounded in-memory recorder is used if HistorySize > 0, otherwise
	// recording is disabled.
	HistoryRecorder history.Recorder `json:"-"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `json:"connection"`
	Server     ServerSettings   `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
type ConnectionConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	DBName  string `json:"dbname"`
	SSLMode string `json:"sslmode"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns          int    `json:"max_conns"`
	MinConns          int    `json:"min_conns"`
	MaxConnLifetime   string `json:"max_conn_lifetime"`
	MaxConnIdleTime   string `json:"max_conn_idle_time"`
	HealthCheckPeriod string `json:"health_check_period"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int      `json:"port"`
	AllowedOrigins     []string `json:"allowed_origins"`
	HealthCheckEnabled bool     `json:"health_check_enabled"`
	HealthCheckPath    string   `json:"health_check_path"`
	MetricsEnabled     bool     `json:"metrics_enabled"`
	MetricsPath        string   `json:"metrics_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	// DefaultRowLimit is the LIMIT injected into SELECTs that carry none.
	// Zero means 100.
	DefaultRowLimit int `json:"default_row_limit"`
	// PreviewRowLimit caps the rows returned by Preview. Zero means 100.
	// Callers may pass a smaller per-request cap.
	PreviewRowLimit     int           `json:"preview_row_limit"`
	ReadTimeoutSeconds  int           `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int           `json:"write_timeout_seconds"`
	MaxSQLLength        int           `json:"max_sql_length"`
	MaxResultLength     int           `json:"max_result_length"`
	TimeoutRules        []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a SQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ErrorHintRule maps a database error message pattern to a guidance hint.
type ErrorHintRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// MaskingRule defines a regex-based result value masking rule.
type MaskingRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// HistoryEntry is one recorded gateway operation.
type HistoryEntry = history.Entry

// HistoryRecorder is an append-only log of gateway operations. Implement it
// to persist history somewhere other than the default in-memory ring.
type HistoryRecorder = history.Recorder
