package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"teenpatti/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // comma-separated, "none" disables publishing

	// Round timing
	BettingWindow   time.Duration
	RevealWindow    time.Duration
	TickInterval    time.Duration
	LockTimeout     time.Duration // how long a request waits for the round lock
	FinalizeTimeout time.Duration // upper bound for persisting and settling one finished round

	// Betting rules
	MinStake      decimal.Decimal
	MaxStake      decimal.Decimal
	ReturnRatio   decimal.Decimal // gross return on a winning stake
	DealMode      string          // "shared" or "independent"
	HistoryWindow int             // finished rounds kept in memory

	// Logging
	LogLevel string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NATSEnabled reports whether events should be published to NATS
func (c *Config) NATSEnabled() bool {
	return c.NATSServers != "" && !strings.EqualFold(c.NATSServers, "none")
}

// load loads configuration from the environment, reading a .env file first if present
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		BettingWindow:   time.Duration(getEnvInt("BETTING_WINDOW_SECONDS", 20)) * time.Second,
		RevealWindow:    time.Duration(getEnvInt("REVEAL_WINDOW_SECONDS", 10)) * time.Second,
		TickInterval:    time.Duration(getEnvInt("TICK_INTERVAL_MS", 500)) * time.Millisecond,
		LockTimeout:     time.Duration(getEnvInt("LOCK_TIMEOUT_MS", 250)) * time.Millisecond,
		FinalizeTimeout: time.Duration(getEnvInt("FINALIZE_TIMEOUT_SECONDS", 20)) * time.Second,

		DealMode:      getEnvWithDefault("DEAL_MODE", "shared"),
		HistoryWindow: getEnvInt("HISTORY_WINDOW", 10),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		OTelEnabled:              getEnvWithDefault("OTEL_ENABLED", "false") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "teenpatti"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: getEnvInt("OTEL_EXPORT_INTERVAL_MS", 15000),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	var err error
	if config.MinStake, err = getEnvDecimal("MIN_STAKE", "10"); err != nil {
		return nil, err
	}
	if config.MaxStake, err = getEnvDecimal("MAX_STAKE", "100000"); err != nil {
		return nil, err
	}
	if config.ReturnRatio, err = getEnvDecimal("RETURN_RATIO", "1.96"); err != nil {
		return nil, err
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.BettingWindow < time.Second || c.RevealWindow < time.Second {
		return fmt.Errorf("betting and reveal windows must be at least one second")
	}
	if c.TickInterval <= 0 || c.LockTimeout <= 0 {
		return fmt.Errorf("TICK_INTERVAL_MS and LOCK_TIMEOUT_MS must be positive")
	}
	if !c.MinStake.IsPositive() || c.MaxStake.LessThan(c.MinStake) {
		return fmt.Errorf("stake bounds are invalid: min %s max %s", c.MinStake, c.MaxStake)
	}
	if c.ReturnRatio.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("RETURN_RATIO must be at least 1, got %s", c.ReturnRatio)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := getEnvWithDefault(key, defaultValue)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		NATSServers:      "none",
		BettingWindow:    20 * time.Second,
		RevealWindow:     10 * time.Second,
		TickInterval:     10 * time.Millisecond,
		LockTimeout:      100 * time.Millisecond,
		FinalizeTimeout:  5 * time.Second,
		MinStake:         decimal.NewFromInt(10),
		MaxStake:         decimal.NewFromInt(100000),
		ReturnRatio:      decimal.RequireFromString("1.96"),
		DealMode:         "shared",
		HistoryWindow:    10,
		LogLevel:         "debug",
		OTelServiceName:  "teenpatti-test",
		OTelExporterType: "none",
	}
}
