package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// CSV source
	DatasetPath  string
	CSVDelimiter string

	// Database
	SQLiteDBPath string

	// Column names
	OrderIDColumn   string
	TimestampColumn string
	CategoryColumn  string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ReportOutputDir string

	// Presentation
	CacheSize   int
	CacheTTL    time.Duration
	RawRowLimit int
	TopN        int

	// Report requests accepted per client per minute
	ReportsPerMinute int

	LogLevel string
}

var validBackends = []string{"csv", "sqlite", "sheets"}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "csv"),

		DatasetPath:  getEnv("DATASET_PATH", "./data/sales_data.csv"),
		CSVDelimiter: getEnv("CSV_DELIMITER", ","),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/salesdash.db"),

		OrderIDColumn:   getEnv("ORDER_ID_COLUMN", "order_id"),
		TimestampColumn: getEnv("TIMESTAMP_COLUMN", "order_purchase_timestamp"),
		CategoryColumn:  getEnv("CATEGORY_COLUMN", "product_category_name_english"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Orders"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "salesdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_requests"),

		ReportOutputDir: getEnv("REPORT_OUTPUT_DIR", "./data/reports"),

		CacheSize:   getEnvInt("CACHE_SIZE", 128),
		CacheTTL:    getEnvDuration("CACHE_TTL", 10*time.Minute),
		RawRowLimit: getEnvInt("RAW_ROW_LIMIT", 500),
		TopN:        getEnvInt("TOP_N", 3),

		ReportsPerMinute: getEnvInt("REPORTS_PER_MINUTE", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Delimiter returns the CSV delimiter as a rune. "\t" and "tab" mean a tab.
func (c *Config) Delimiter() rune {
	switch c.CSVDelimiter {
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// AMQPEnabled reports whether report requests can be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DatasetPath == "" {
			errors = append(errors, "dataset path cannot be empty when using csv backend")
		} else if _, err := os.Stat(c.DatasetPath); err != nil {
			errors = append(errors, fmt.Sprintf("dataset file is not readable: %v", err))
		}
		if utf8.RuneCountInString(c.CSVDelimiter) != 1 && c.CSVDelimiter != `\t` && c.CSVDelimiter != "tab" {
			errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", c.CSVDelimiter))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	for key, v := range map[string]string{
		"ORDER_ID_COLUMN":  c.OrderIDColumn,
		"TIMESTAMP_COLUMN": c.TimestampColumn,
		"CATEGORY_COLUMN":  c.CategoryColumn,
	} {
		if strings.TrimSpace(v) == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", key))
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

	if c.CacheSize < 1 || c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be between 1 and 10000", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.RawRowLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid raw row limit %d: must be at least 1", c.RawRowLimit))
	}
	if c.TopN < 1 || c.TopN > 50 {
		errors = append(errors, fmt.Sprintf("invalid top N %d: must be between 1 and 50", c.TopN))
	}

	if c.ReportsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid reports per minute %d: must be at least 1", c.ReportsPerMinute))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
