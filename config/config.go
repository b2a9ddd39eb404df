package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	Port int

	// Redis configuration (document store + directory update stream)
	RedisAddr         string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int

	// Memcache configuration (directory refresh cooldown)
	MemcacheAddr string

	// Purchase ledger
	LedgerPath string

	// Directory refresh worker
	RefreshInterval   time.Duration
	RefreshBatchSize  int
	RefreshBatchDelay time.Duration
	RefreshCooldown   time.Duration

	// Scraper
	Headless          bool
	DisablePointerSim bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	port, _ := strconv.Atoi(getEnv("PORT", "3000"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	refreshInterval, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "300"))
	batchSize, _ := strconv.Atoi(getEnv("REFRESH_BATCH_SIZE", "2"))
	batchDelayMs, _ := strconv.Atoi(getEnv("REFRESH_BATCH_DELAY_MS", "1500"))
	cooldown, _ := strconv.Atoi(getEnv("REFRESH_COOLDOWN_SECONDS", "600"))

	return Config{
		Port:              port,
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           redisDB,
		RedisStream:       getEnv("REDIS_STREAM", "storefront:updates"),
		RedisStreamMaxLen: streamMaxLen,
		MemcacheAddr:      getEnv("MEMCACHE_ADDR", "localhost:11211"),
		LedgerPath:        getEnv("LEDGER_PATH", "./db/purchases.txt"),
		RefreshInterval:   time.Duration(refreshInterval) * time.Second,
		RefreshBatchSize:  batchSize,
		RefreshBatchDelay: time.Duration(batchDelayMs) * time.Millisecond,
		RefreshCooldown:   time.Duration(cooldown) * time.Second,
		Headless:          getEnv("SCRAPER_HEADLESS", "true") == "true",
		DisablePointerSim: getEnv("SCRAPER_DISABLE_POINTER_SIM", "false") == "true",
		Environment:       getEnv("STOREFRONT_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values that cannot work at runtime
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.RefreshBatchSize < 1 {
		return fmt.Errorf("refresh batch size must be at least 1, got %d", c.RefreshBatchSize)
	}
	// Concurrent browser sessions against the same target multiply
	// detection risk and Chrome process cost.
	if c.RefreshBatchSize > 3 {
		return fmt.Errorf("refresh batch size must not exceed 3, got %d", c.RefreshBatchSize)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger path must not be empty")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
