package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration read from the environment.
// Strategy parameters live in internal/strategyconfig, not here.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: empty URL means no Postgres-backed providers)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data
	MarketData MarketDataConfig

	// Strategy / universe files
	StrategyConfigPath string
	UniverseFile       string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
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
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MarketDataConfig configures the remote chart provider
type MarketDataConfig struct {
	Source         string // postgres, chart
	BaseURL        string
	RequestsPerSec float64
	Burst          int
	Timeout        time.Duration
	FetchWorkers   int

	// Quality gate (0 disables a check)
	MinCoverage       float64
	MinLatestCoverage float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MarketData: MarketDataConfig{
			Source:         getEnv("MARKET_DATA_SOURCE", "chart"),
			BaseURL:        getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSec: getEnvAsFloat("MARKET_DATA_RPS", 2),
			Burst:          getEnvAsInt("MARKET_DATA_BURST", 1),
			Timeout:        getEnvAsDuration("MARKET_DATA_TIMEOUT", "30s"),
			FetchWorkers:   getEnvAsInt("MARKET_DATA_WORKERS", 4),

			MinCoverage:       getEnvAsFloat("MARKET_DATA_MIN_COVERAGE", 0.8),
			MinLatestCoverage: getEnvAsFloat("MARKET_DATA_MIN_LATEST_COVERAGE", 0.5),
		},

		StrategyConfigPath: getEnv("STRATEGY_CONFIG", ""),
		UniverseFile:       getEnv("UNIVERSE_FILE", "config/universe.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are coherent
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.MarketData.Source {
	case "chart":
		if c.MarketData.BaseURL == "" {
			return fmt.Errorf("MARKET_DATA_BASE_URL is required for the chart source")
		}
	case "postgres":
		// postgres 소스는 DATABASE_URL 필수
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when MARKET_DATA_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("MARKET_DATA_SOURCE must be one of: chart, postgres")
	}

	if c.MarketData.RequestsPerSec <= 0 {
		return fmt.Errorf("MARKET_DATA_RPS must be > 0")
	}
	if c.MarketData.FetchWorkers <= 0 {
		return fmt.Errorf("MARKET_DATA_WORKERS must be > 0")
	}
	for name, v := range map[string]float64{
		"MARKET_DATA_MIN_COVERAGE":        c.MarketData.MinCoverage,
		"MARKET_DATA_MIN_LATEST_COVERAGE": c.MarketData.MinLatestCoverage,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
