package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	sqlgate "github.com/sqlgate/sqlgate"
)

// runInit writes a starter config file the serve command can load. Existing
// files are preserved unless --force is given.
func runInit(args []string) error {
	force := false
	for _, arg := range args {
		if arg == "--force" {
			force = true
		}
	}

	configPath := os.Getenv("SQLGATE_CONFIG_PATH")
	if configPath == "" {
		configPath = ".sqlgate/config.json"
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(defaultServerConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func defaultServerConfig() sqlgate.ServerConfig {
	config := sqlgate.ServerConfig{
		Connection: sqlgate.ConnectionConfig{
			Host:    "localhost",
			Port:    5432,
			DBName:  "postgres",
			SSLMode: "prefer",
		},
		Server: sqlgate.ServerSettings{
			Port:               8080,
			AllowedOrigins:     []string{"*"},
			HealthCheckEnabled: true,
			HealthCheckPath:    "/healthz",
			MetricsEnabled:     true,
			MetricsPath:        "/metrics",
		},
		Logging: sqlgate.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
	config.Pool = sqlgate.PoolConfig{MaxConns: 10, MinConns: 2}
	config.Query = sqlgate.QueryConfig{
		DefaultRowLimit:     100,
		PreviewRowLimit:     100,
		ReadTimeoutSeconds:  30,
		WriteTimeoutSeconds: 30,
	}
	config.HistorySize = 500
	return config
}
