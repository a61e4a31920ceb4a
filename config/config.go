// Package config has the configuration for the enrichment tool
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the tool runs in
type Environment int

const (
	EnvDevelopment Environment = iota
	EnvStaging
	EnvProduction
	EnvTest
)

// String returns the short name of the environment
func (e Environment) String() string {
	switch e {
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "prod"
	case EnvTest:
		return "test"
	default:
		return "dev"
	}
}

// ParseEnvironment parses the ENV variable, accepting short and long names
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// Sheet backends
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

// Defaults for the production sheet and credentials
const (
	DefaultBaseURL         = "https://api.mouser.com/api/v2/"
	DefaultSheetID         = "1HFwrHn94KpDu287DEjAbL8Y2ujM4oWFlg41H3qznz60"
	DefaultCredentialsFile = "credentials.json"
)

// Config holds all application configuration
type Config struct {
	APIKey              string
	BaseURL             string
	SheetBackend        string
	SheetID             string
	CredentialsFile     string
	XLSXPath            string
	XLSXSheet           string
	Env                 Environment
	LogLevel            string
	LogDir              string
	LogRetentionWeeks   int   // Number of weeks to keep log files
	MaxLogFileSize      int64 // Maximum log file size in bytes
	LookupTimeout       time.Duration
	LookupRatePerMinute int64           // 0 disables pacing
	ScheduleAt          string          // gocron At() expression, empty runs once
	ScheduleTimes       []time.Duration // ScheduleAt as offsets from midnight, sorted
	StatusAddress       string
	StatusPort          string          // empty disables the status server
	MetricsFile         string          // Prometheus textfile output, empty disables
}

// Scheduled reports whether the tool should keep running on a schedule
func (c *Config) Scheduled() bool {
	return c.ScheduleAt != ""
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	timeout, err := time.ParseDuration(getEnvWithDefault("LOOKUP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid LOOKUP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		APIKey:              strings.TrimSpace(os.Getenv("SEARCH_API_KEY")),
		BaseURL:             getEnvWithDefault("MOUSER_BASE_URL", DefaultBaseURL),
		SheetBackend:        strings.ToLower(getEnvWithDefault("SHEET_BACKEND", BackendGoogle)),
		SheetID:             getEnvWithDefault("SHEET_ID", DefaultSheetID),
		CredentialsFile:     getEnvWithDefault("GOOGLE_CREDENTIALS", DefaultCredentialsFile),
		XLSXPath:            getEnvWithDefault("XLSX_PATH", "parts.xlsx"),
		XLSXSheet:           os.Getenv("XLSX_SHEET"),
		Env:                 env,
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:              getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks:   getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:      getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		LookupTimeout:       timeout,
		LookupRatePerMinute: getInt64EnvWithDefault("LOOKUP_RATE_PER_MINUTE", 0),
		ScheduleAt:          strings.TrimSpace(os.Getenv("SCHEDULE_AT")),
		StatusAddress:       getEnvWithDefault("STATUS_ADDRESS", "127.0.0.1"),
		StatusPort:          os.Getenv("STATUS_PORT"),
		MetricsFile:         os.Getenv("METRICS_FILE"),
	}

	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Scheduled() {
		times, err := ParseScheduleAt(cfg.ScheduleAt)
		if err != nil {
			return nil, fmt.Errorf("configuration validation failed: invalid SCHEDULE_AT: %w", err)
		}
		cfg.ScheduleTimes = times
	}

	return cfg, nil
}

// ParseScheduleAt parses a list of daily times such as "06:00;18:00" into
// sorted offsets from midnight. Times use the same HH:MM[:SS] form as gocron.
func ParseScheduleAt(value string) ([]time.Duration, error) {
	var times []time.Duration
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		layout := "15:04"
		if strings.Count(part, ":") == 2 {
			layout = "15:04:05"
		}
		t, err := time.Parse(layout, part)
		if err != nil {
			return nil, fmt.Errorf("time must be HH:MM or HH:MM:SS, got: %s", part)
		}

		offset := time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second
		if !slices.Contains(times, offset) {
			times = append(times, offset)
		}
	}

	if len(times) == 0 {
		return nil, fmt.Errorf("at least one time is required")
	}

	slices.Sort(times)
	return times, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("SEARCH_API_KEY is not set")
	}

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid MOUSER_BASE_URL: %w", err)
	}

	if err := validateBackend(cfg); err != nil {
		return fmt.Errorf("invalid SHEET_BACKEND: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if cfg.LookupTimeout < 0 {
		return fmt.Errorf("invalid LOOKUP_TIMEOUT: must not be negative, got: %s", cfg.LookupTimeout)
	}

	if cfg.LookupRatePerMinute < 0 {
		return fmt.Errorf("invalid LOOKUP_RATE_PER_MINUTE: must not be negative, got: %d", cfg.LookupRatePerMinute)
	}

	if cfg.StatusPort != "" {
		if err := validatePort(cfg.StatusPort); err != nil {
			return fmt.Errorf("invalid STATUS_PORT: %w", err)
		}
		if err := validateAddress(cfg.StatusAddress); err != nil {
			return fmt.Errorf("invalid STATUS_ADDRESS: %w", err)
		}
	}

	return nil
}

// validateBaseURL checks the search API base URL
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}

// validateBackend checks the backend name and the settings it needs
func validateBackend(cfg *Config) error {
	switch cfg.SheetBackend {
	case BackendGoogle:
		if cfg.SheetID == "" {
			return fmt.Errorf("SHEET_ID cannot be empty for the google backend")
		}
		if cfg.CredentialsFile == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS cannot be empty for the google backend")
		}
	case BackendXLSX:
		if !strings.HasSuffix(strings.ToLower(cfg.XLSXPath), ".xlsx") {
			return fmt.Errorf("XLSX_PATH must point to a .xlsx file, got: %s", cfg.XLSXPath)
		}
	default:
		return fmt.Errorf("must be one of: [%s %s], got: %s", BackendGoogle, BackendXLSX, cfg.SheetBackend)
	}
	return nil
}

// validatePort validates a listening port
func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("port %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the status server listening address
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("address must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("address %s is a public IP, use a private network range", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"SEARCH_API_KEY",
		"MOUSER_BASE_URL",
		"SHEET_BACKEND",
		"SHEET_ID",
		"GOOGLE_CREDENTIALS",
		"XLSX_PATH",
		"XLSX_SHEET",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"LOOKUP_TIMEOUT",
		"LOOKUP_RATE_PER_MINUTE",
		"SCHEDULE_AT",
		"STATUS_ADDRESS",
		"STATUS_PORT",
		"METRICS_FILE",
	}
}
