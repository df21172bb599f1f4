// Package config provides daemon configuration management with support for
// environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the daemon configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	RPC       RPCConfig
	Reconcile ReconcileConfig
	Import    ImportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds durable storage configuration.
type DataConfig struct {
	// BasePath is the root directory for the badger store, search index,
	// and import drop directory.
	BasePath string
	// CapacityBytes is the quota ceiling surfaced through Stats().
	// Writes beyond it fail with QUOTA_EXCEEDED.
	CapacityBytes int64
}

// RPCConfig holds transport configuration.
type RPCConfig struct {
	// SocketPath is the unix socket callers other than the stdio channel
	// connect to. Defaults to {data}/convomark.sock.
	SocketPath string
	// ServeStdio enables the native-messaging channel on stdin/stdout.
	ServeStdio bool
	// LivenessInterval is how often callers ping the owner.
	LivenessInterval time.Duration
	// RequestsPerSecond rate-limits each connection (burst 2x).
	RequestsPerSecond float64
}

// ReconcileConfig holds reconciliation engine tuning.
type ReconcileConfig struct {
	// IdleWindow is the quiet period after a mutation burst before a pass runs.
	IdleWindow time.Duration
	// SubscribeCeiling bounds observe-scope retry; past it the engine
	// surfaces a persistent not-ready state instead of retrying forever.
	SubscribeCeiling time.Duration
}

// ImportConfig holds snapshot import watching configuration.
type ImportConfig struct {
	// WatchDir is the drop directory scanned for snapshot files.
	// Defaults to {data}/import. Empty after expansion disables the watcher.
	WatchDir string
	// SettleDelay is how long a dropped file must stay unchanged before import.
	SettleDelay time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for durable storage")
	capacityBytes := flag.String("capacity-bytes", "", "Storage quota ceiling in bytes (default: 10485760)")
	socketPath := flag.String("socket-path", "", "Unix socket path for local callers")
	serveStdio := flag.String("serve-stdio", "", "Serve the native-messaging channel on stdio (default: true)")
	livenessInterval := flag.String("liveness-interval", "", "Caller liveness ping interval (default: 5s)")
	requestsPerSecond := flag.String("requests-per-second", "", "Per-connection request rate limit (default: 50)")
	idleWindow := flag.String("reconcile-idle-window", "", "Mutation burst quiet window (default: 300ms)")
	subscribeCeiling := flag.String("subscribe-ceiling", "", "Observe-scope retry ceiling (default: 30s)")
	importDir := flag.String("import-dir", "", "Snapshot import drop directory")
	settleDelay := flag.String("import-settle-delay", "", "Import file settle delay (default: 500ms)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:      getConfigValue(*dataPath, "DATA_PATH", ""),
			CapacityBytes: getInt64ConfigValue(*capacityBytes, "CAPACITY_BYTES", 10*1024*1024),
		},
		RPC: RPCConfig{
			SocketPath:        getConfigValue(*socketPath, "SOCKET_PATH", ""),
			ServeStdio:        getBoolConfigValue(*serveStdio, "SERVE_STDIO", true),
			RequestsPerSecond: float64(getIntConfigValue(*requestsPerSecond, "REQUESTS_PER_SECOND", 50)),
		},
		Import: ImportConfig{
			WatchDir: getConfigValue(*importDir, "IMPORT_DIR", ""),
		},
	}

	var err error
	if cfg.RPC.LivenessInterval, err = parseDurationValue(*livenessInterval, "LIVENESS_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.Reconcile.IdleWindow, err = parseDurationValue(*idleWindow, "RECONCILE_IDLE_WINDOW", "300ms"); err != nil {
		return nil, err
	}
	if cfg.Reconcile.SubscribeCeiling, err = parseDurationValue(*subscribeCeiling, "SUBSCRIBE_CEILING", "30s"); err != nil {
		return nil, err
	}
	if cfg.Import.SettleDelay, err = parseDurationValue(*settleDelay, "IMPORT_SETTLE_DELAY", "500ms"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	cfg.expandDerivedPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}
	if c.Data.CapacityBytes <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", c.Data.CapacityBytes)
	}
	if c.Reconcile.IdleWindow <= 0 {
		return errors.New("reconcile idle window must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ConvoMark")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandDerivedPaths fills in paths that default relative to the data root.
func (c *Config) expandDerivedPaths() {
	if c.RPC.SocketPath == "" {
		c.RPC.SocketPath = filepath.Join(c.Data.BasePath, "convomark.sock")
	}
	if c.Import.WatchDir == "" {
		c.Import.WatchDir = filepath.Join(c.Data.BasePath, "import")
	}
}

// parseDurationValue resolves a duration with flag/env/default precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getInt64ConfigValue returns an int64 from flag, env var, or default.
func getInt64ConfigValue(flagValue, envKey string, defaultValue int64) int64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int64
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
