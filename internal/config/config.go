package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted in BOOKMARKS_STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

var drivers = []string{DriverMemory, DriverRedis, DriverPostgres, DriverDynamoDB}

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Store
	Table          string // table / key namespace the consumer writes to
	StoreDriver    string // memory | redis | postgres | dynamodb
	DatabaseURL    string // postgres connection string
	DynamoRegion   string // AWS region for dynamodb
	DynamoEndpoint string // optional endpoint override (DynamoDB Local)

	// Event bus
	BusEndpoint       string        // optional remote PutEvents endpoint; empty = publish in-process
	BusTimeout        time.Duration // HTTP timeout for the remote publisher
	BusConsumer       string        // consumer name inside each group (default: hostname)
	BusWorkers        int           // concurrent consumer invocations
	BusBatch          int64         // stream entries per read
	BusBlock          time.Duration // blocking read timeout
	RedeliverInterval time.Duration // how often stuck deliveries are reclaimed
	RedeliverMinIdle  time.Duration // idle time before a delivery counts as stuck

	// Seed import
	SeedFile     string        // homepage bookmarks.yaml (optional, empty = seeding disabled)
	SeedInterval time.Duration // interval between imports (default: 24h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict mutation endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict operational endpoints to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // optional, browser origins allowed to call the API

	RateBurst  int // mutation requests allowed in a burst per IP
	RatePerMin int // sustained mutation requests per IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BOOKMARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BOOKMARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("BOOKMARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BOOKMARKS_PRETTY_LOG", true),

		// Store
		Table:          requireEnv("BOOKMARK_TABLE"),
		StoreDriver:    strings.ToLower(getenv("BOOKMARKS_STORE_DRIVER", DriverRedis)),
		DatabaseURL:    getenv("BOOKMARKS_DATABASE_URL", ""),
		DynamoRegion:   getenv("BOOKMARKS_DYNAMODB_REGION", "us-east-1"),
		DynamoEndpoint: getenv("BOOKMARKS_DYNAMODB_ENDPOINT", ""),

		// Event bus
		BusEndpoint:       getenv("BOOKMARKS_BUS_ENDPOINT", ""),
		BusTimeout:        mustDuration("BOOKMARKS_BUS_TIMEOUT", 5*time.Second),
		BusConsumer:       getenv("BOOKMARKS_BUS_CONSUMER", hostname()),
		BusWorkers:        getenvInt("BOOKMARKS_BUS_WORKERS", 4),
		BusBatch:          int64(getenvInt("BOOKMARKS_BUS_BATCH", 10)),
		BusBlock:          mustDuration("BOOKMARKS_BUS_BLOCK", 2*time.Second),
		RedeliverInterval: mustDuration("BOOKMARKS_REDELIVER_INTERVAL", 30*time.Second),
		RedeliverMinIdle:  mustDuration("BOOKMARKS_REDELIVER_MIN_IDLE", time.Minute),

		// Seed import
		SeedFile:     getenv("BOOKMARKS_SEED_FILE", ""), // Optional, empty = seeding disabled
		SeedInterval: mustDuration("BOOKMARKS_SEED_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:             requireEnv("BOOKMARKS_REDIS_ADDR"),
		RedisUser:             getenv("BOOKMARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BOOKMARKS_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("BOOKMARKS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("BOOKMARKS_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("BOOKMARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("BOOKMARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BOOKMARKS_TRUST_PROXY", true),
		CORSOrigins:  splitAndTrim(getenv("BOOKMARKS_CORS_ORIGINS", "")),

		RateBurst:  getenvInt("BOOKMARKS_RATE_BURST", 20),
		RatePerMin: getenvInt("BOOKMARKS_RATE_PER_MIN", 120),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

func (cfg *Config) validate() {
	if !slices.Contains(drivers, cfg.StoreDriver) {
		panic(fmt.Sprintf("❌ FATAL: BOOKMARKS_STORE_DRIVER must be one of %s, got %q",
			strings.Join(drivers, ", "), cfg.StoreDriver))
	}

	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		panic("❌ FATAL: BOOKMARKS_DATABASE_URL is required when BOOKMARKS_STORE_DRIVER=postgres")
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: BOOKMARKS_REDIS_PASSWORD is required when BOOKMARKS_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.BusWorkers < 1 {
		panic(fmt.Sprintf("❌ FATAL: BOOKMARKS_BUS_WORKERS must be >= 1, got %d", cfg.BusWorkers))
	}

	// Both drive tickers.
	if cfg.RedeliverInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: BOOKMARKS_REDELIVER_INTERVAL must be > 0, got %v", cfg.RedeliverInterval))
	}
	if cfg.SeedInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: BOOKMARKS_SEED_INTERVAL must be > 0, got %v", cfg.SeedInterval))
	}
}

// Redacted returns a copy safe to print.
func (cfg *Config) Redacted() Config {
	c := *cfg
	c.RedisPassword = "***REDACTED***"
	if cfg.RedisUser != "" {
		c.RedisUser = "***REDACTED***"
	}
	if cfg.DatabaseURL != "" {
		c.DatabaseURL = "***REDACTED***"
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "bookmarks"
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
