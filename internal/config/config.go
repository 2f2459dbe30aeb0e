package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"memory", "sqlite", "postgres"}

type Config struct {
	// HTTP Server
	Port      string `yaml:"port"`
	APIPrefix string `yaml:"api_prefix"`

	// Storage
	DataBackend  string `yaml:"data_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`
	DatabaseURL  string `yaml:"database_url"`

	// AMQP; an empty URL disables event publishing
	AMQPURL        string `yaml:"amqp_url"`
	AMQPExchange   string `yaml:"amqp_exchange"`
	AMQPQueue      string `yaml:"amqp_queue"`
	WorkerPrefetch int    `yaml:"worker_prefetch"`

	// Google Sheets activity log
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleActivitySheetName  string `yaml:"google_activity_sheet_name"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`

	// Auth
	AuthMode       string `yaml:"auth_mode"`
	AuthJWTSecret  string `yaml:"auth_jwt_secret"`
	AuthUserHeader string `yaml:"auth_user_header"`

	// HTTP hardening
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:                    "8081",
		APIPrefix:               "/api",
		DataBackend:             "sqlite",
		SQLiteDBPath:            "./data/dompet.db",
		AMQPExchange:            "dompet",
		AMQPQueue:               "ledger_events",
		WorkerPrefetch:          10,
		GoogleActivitySheetName: "Activity",
		AuthMode:                "jwt",
		AuthUserHeader:          "X-User-ID",
		RateLimitPerMinute:      120,
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// Load layers defaults, the YAML file named by CONFIG_FILE and the
// environment, in increasing precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.APIPrefix = getEnv("API_PREFIX", c.APIPrefix)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	c.WorkerPrefetch = getEnvInt("WORKER_PREFETCH", c.WorkerPrefetch)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleActivitySheetName = getEnv("GOOGLE_ACTIVITY_SHEET_NAME", c.GoogleActivitySheetName)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)

	c.AuthMode = getEnv("AUTH_MODE", c.AuthMode)
	c.AuthJWTSecret = getEnv("AUTH_JWT_SECRET", c.AuthJWTSecret)
	c.AuthUserHeader = getEnv("AUTH_USER_HEADER", c.AuthUserHeader)

	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// SheetsEnabled reports whether the worker should write to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		errors = append(errors, fmt.Sprintf("invalid API prefix '%s': must start with '/'", c.APIPrefix))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WorkerPrefetch < 1 || c.WorkerPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be between 1 and 1000", c.WorkerPrefetch))
	}

	if c.SheetsEnabled() {
		if c.GoogleActivitySheetName == "" {
			errors = append(errors, "Google activity sheet name is required when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	switch c.AuthMode {
	case "jwt":
		if c.AuthJWTSecret == "" {
			errors = append(errors, "AUTH_JWT_SECRET is required when AUTH_MODE is jwt")
		}
	case "header":
		if c.AuthUserHeader == "" {
			errors = append(errors, "AUTH_USER_HEADER cannot be empty when AUTH_MODE is header")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid auth mode '%s': must be 'jwt' or 'header'", c.AuthMode))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
