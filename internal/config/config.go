// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Dataset DatasetConfig
	Session SessionConfig
	Chart   ChartConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name           string
	Host           string        // Bind address (default: 127.0.0.1)
	Port           string        // Server port (default: 8050)
	Debug          bool          // Verbose routing and template errors
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 0, SSE streams are long-lived)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins for the JSON API
	AdvertiseMDNS  bool          // Advertise via mDNS/Zeroconf (default: false)
	RateLimitRPS   float64       // Per-client API requests per second (0 disables)
	RateLimitBurst int
}

// DatasetConfig describes where the movie table comes from.
type DatasetConfig struct {
	// Path to a .csv file or a .db/.sqlite/.sqlite3 database.
	Path string
	// SchemaPath optionally points at a YAML file overriding column names.
	SchemaPath string
	// Table is the SQLite table to read when Path is a database.
	Table string
}

// SessionConfig holds dashboard session configuration.
type SessionConfig struct {
	IdleTTL time.Duration
	// Key seals session cookies (PASETO v4.local, 32 bytes). Generated per process when empty.
	Key []byte
}

// ChartConfig holds chart rendering configuration.
type ChartConfig struct {
	DefaultGenre string
	CacheTTL     time.Duration
	PNGWidth     int
	PNGHeight    int
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverName := fs.String("server-name", "", "Name advertised over mDNS")
	host := fs.String("host", "", "Bind address (default: 127.0.0.1)")
	port := fs.String("port", "", "Server port (default: 8050)")
	debug := fs.String("debug", "", "Enable debug mode (default: false)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins")
	advertiseMDNS := fs.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: false)")
	rateLimitRPS := fs.String("rate-limit-rps", "", "Per-client API requests per second (default: 20)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Per-client API burst (default: 40)")

	// Dataset flags
	datasetPath := fs.String("data", "", "Path to the movies dataset (.csv or SQLite)")
	schemaPath := fs.String("schema", "", "Path to a YAML column schema")
	table := fs.String("table", "", "SQLite table holding the movies (default: movies)")

	// Session and chart flags
	sessionTTL := fs.String("session-ttl", "", "Idle session lifetime (default: 30m)")
	sessionKey := fs.String("session-key", "", "Hex-encoded 32-byte session key")
	defaultGenre := fs.String("default-genre", "", "Genre shown on first load (default: Action)")
	cacheTTL := fs.String("chart-cache-ttl", "", "Chart document cache TTL (default: 10m)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name:           getConfigValue(*serverName, "SERVER_NAME", "Directors Production Tracker"),
			Host:           getConfigValue(*host, "SERVER_HOST", "127.0.0.1"),
			Port:           getConfigValue(*port, "SERVER_PORT", "8050"),
			Debug:          getBoolConfigValue(*debug, "DEBUG", false),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "")),
			AdvertiseMDNS:  getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", false),
			RateLimitBurst: getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
		Dataset: DatasetConfig{
			Path:       getConfigValue(*datasetPath, "DATASET_PATH", filepath.Join("data", "clean", "movies_clean_df.csv")),
			SchemaPath: getConfigValue(*schemaPath, "DATASET_SCHEMA", ""),
			Table:      getConfigValue(*table, "DATASET_TABLE", "movies"),
		},
		Chart: ChartConfig{
			DefaultGenre: getConfigValue(*defaultGenre, "DEFAULT_GENRE", "Action"),
			PNGWidth:     getIntConfigValue("", "CHART_PNG_WIDTH", 900),
			PNGHeight:    getIntConfigValue("", "CHART_PNG_HEIGHT", 480),
		},
	}

	rps, err := strconv.ParseFloat(getConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	cfg.Server.RateLimitRPS = rps

	durations := []struct {
		flagValue, envKey, def string
		dst                    *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*sessionTTL, "SESSION_IDLE_TTL", "30m", &cfg.Session.IdleTTL},
		{*cacheTTL, "CHART_CACHE_TTL", "10m", &cfg.Chart.CacheTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if rawKey := getConfigValue(*sessionKey, "SESSION_KEY", ""); rawKey != "" {
		key, err := hex.DecodeString(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid session key: %w", err)
		}
		cfg.Session.Key = key
	}

	if err := cfg.expandDatasetPaths(); err != nil {
		return nil, fmt.Errorf("invalid dataset path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
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

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s", c.Server.Port)
	}

	if c.Dataset.Path == "" {
		return errors.New("dataset path cannot be empty")
	}

	if c.Session.Key != nil && len(c.Session.Key) != 32 {
		return fmt.Errorf("session key must be 32 bytes, got %d", len(c.Session.Key))
	}

	if c.Session.IdleTTL <= 0 {
		return errors.New("session idle TTL must be positive")
	}

	if c.Chart.PNGWidth <= 0 || c.Chart.PNGHeight <= 0 {
		return errors.New("chart PNG dimensions must be positive")
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

func (c *Config) expandDatasetPaths() error {
	expanded, err := expandPath(c.Dataset.Path, "")
	if err != nil {
		return err
	}
	c.Dataset.Path = expanded

	// Empty schema path means built-in column names.
	expanded, err = expandPath(c.Dataset.SchemaPath, "")
	if err != nil {
		return err
	}
	c.Dataset.SchemaPath = expanded
	return nil
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
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
