package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	AdminAPIToken   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	SeedDemoData    bool
}

// Database configures the PostgreSQL pool. An empty URL selects in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BootstrapSchema bool
}

// Redis configures the location cache. An empty URL disables caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Matching holds the knobs of the donor matcher and the location lookups feeding it.
type Matching struct {
	MaxResults       int
	Timeout          time.Duration
	LocationCacheTTL time.Duration
	// CriticalUnitsThreshold only drives dashboard statistics.
	CriticalUnitsThreshold int
}

type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Matching Matching
}

// FromEnv builds the config from environment variables so main stays lean.
// Unparseable values fall back to defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("BLOODLINK_ADDR", ":8080"),
			Environment:     envString("ENVIRONMENT", "dev"),
			AdminAPIToken:   os.Getenv("ADMIN_API_TOKEN"),
			RequestTimeout:  envDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			SeedDemoData:    envBool("SEED_DEMO_DATA", false),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			BootstrapSchema: envBool("DB_BOOTSTRAP_SCHEMA", false),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Matching: Matching{
			MaxResults:             envInt("MATCH_MAX_RESULTS", 0),
			Timeout:                envDuration("MATCH_TIMEOUT", 5*time.Second),
			LocationCacheTTL:       envDuration("LOCATION_CACHE_TTL", 24*time.Hour),
			CriticalUnitsThreshold: envInt("CRITICAL_UNITS_THRESHOLD", 30),
		},
	}
}

// IsProduction gates demo seeding and other development conveniences.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "prod" || c.Server.Environment == "production"
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
