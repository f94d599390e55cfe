package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Pipeline
	Pipeline PipelineConfig

	// Provider
	Provider ProviderConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Audit
	Audit AuditConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// PipelineConfig holds evaluation pipeline configuration
type PipelineConfig struct {
	FixturePath string // JSON bar fixture; empty means live provider
	PolicyPath  string // YAML gate policy; empty means built-in policy
	HistoryDays int    // trading history fetched per evaluation
	ShortWindow int    // recent realized-statistics window (bars)
	LongWindow  int    // baseline window for z-scoring (bars)
}

// ProviderConfig holds market data provider configuration
type ProviderConfig struct {
	BaseURL        string
	ScrapeBaseURL  string
	RatePerSecond  int // request budget for the HTTP provider
	RateBurst      int
	CacheTTL       time.Duration // feature cache TTL; 0 disables caching
	RequestTimeout time.Duration
}

// SchedulerConfig holds watchlist evaluation configuration
type SchedulerConfig struct {
	Watchlist []string // symbols evaluated on the cron schedule
	Schedule  string   // cron spec with seconds field
}

// AuditConfig holds run persistence configuration
type AuditConfig struct {
	Enabled bool // when true, risk states and gates are written to Postgres
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: this function is the only caller of os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		// Pipeline
		Pipeline: PipelineConfig{
			FixturePath: getEnv("FIXTURE_PATH", ""),
			PolicyPath:  getEnv("POLICY_PATH", ""),
			HistoryDays: getEnvAsInt("HISTORY_DAYS", 120),
			ShortWindow: getEnvAsInt("FEATURE_SHORT_WINDOW", 20),
			LongWindow:  getEnvAsInt("FEATURE_LONG_WINDOW", 60),
		},

		// Provider
		Provider: ProviderConfig{
			BaseURL:        getEnv("PROVIDER_BASE_URL", "https://query1.finance.yahoo.com/v8/finance"),
			ScrapeBaseURL:  getEnv("SCRAPE_BASE_URL", "https://finance.naver.com"),
			RatePerSecond:  getEnvAsInt("PROVIDER_RATE_PER_SECOND", 5),
			RateBurst:      getEnvAsInt("PROVIDER_RATE_BURST", 5),
			CacheTTL:       getEnvAsDuration("FEATURE_CACHE_TTL", "5m"),
			RequestTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", "10s"),
		},

		// Scheduler
		Scheduler: SchedulerConfig{
			Watchlist: getEnvAsSlice("WATCHLIST", nil),
			Schedule:  getEnv("WATCH_SCHEDULE", "0 */5 * * * *"),
		},

		// Audit
		Audit: AuditConfig{
			Enabled: getEnvAsBool("AUDIT_ENABLED", false),
		},

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "riskos"),
			User:            getEnv("DB_USER", "riskos"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is only required when runs are persisted
	if c.Audit.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when AUDIT_ENABLED=true")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.ShortWindow > 0 && c.Pipeline.LongWindow > 0 &&
		c.Pipeline.ShortWindow >= c.Pipeline.LongWindow {
		return fmt.Errorf("FEATURE_SHORT_WINDOW must be smaller than FEATURE_LONG_WINDOW")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	if len(values) == 0 {
		return defaultValue
	}

	return values
}
