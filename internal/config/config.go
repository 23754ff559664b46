// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Supported values for DB_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the operational server will bind to.
	ServerHost string
	// ServerPort is the port number the operational server will listen on.
	ServerPort int

	// DBDriver selects the storage backend ("memory", "postgres" or "mysql").
	DBDriver string
	// DBConnectionString is the connection string for the database.
	DBConnectionString string
	// DBMaxOpenConnections is the maximum number of open connections to the database.
	DBMaxOpenConnections int
	// DBMaxIdleConnections is the maximum number of idle connections in the database pool.
	DBMaxIdleConnections int
	// DBConnMaxLifetime is the maximum amount of time a connection may be reused.
	DBConnMaxLifetime time.Duration

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// CORSEnabled indicates whether CORS is enabled on the operational server.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string

	// GrantDefaultDurationDays is the grant duration used when the caller omits one.
	GrantDefaultDurationDays int
	// EmergencyAccessDuration is how long an emergency access record stays active.
	EmergencyAccessDuration time.Duration

	// AuditSigningKey is the input key material for audit entry signatures.
	// Entries are left unsigned when empty.
	AuditSigningKey string
	// AuditPageSize is the number of entries fetched per page by audit queries.
	AuditPageSize int
	// AuditMemoryCapacity caps the in-memory audit repository (0 = unbounded).
	AuditMemoryCapacity int

	// IntegrityCheckInterval is the period between integrity sweeps.
	IntegrityCheckInterval time.Duration
	// IntegrityCheckRatePerSec limits how many artifacts a sweep verifies per second.
	IntegrityCheckRatePerSec float64

	// LockTimeout bounds how long a writer waits for an artifact lock.
	LockTimeout time.Duration
	// LockRedisURL selects the Redis-backed locker shared across instances. The
	// in-process locker is used when empty.
	LockRedisURL string
	// LockLeaseTTL is how long a Redis lock survives a holder that never releases it.
	LockLeaseTTL time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		// Database configuration
		DBDriver:             env.GetString("DB_DRIVER", DriverMemory),
		DBConnectionString:   env.GetString("DB_CONNECTION_STRING", ""),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "medledger"),

		// Access policy
		GrantDefaultDurationDays: env.GetInt("GRANT_DEFAULT_DURATION_DAYS", 30),
		EmergencyAccessDuration: env.GetDuration(
			"EMERGENCY_ACCESS_DURATION_MINUTES",
			30,
			time.Minute,
		),

		// Audit trail
		AuditSigningKey:     env.GetString("AUDIT_SIGNING_KEY", ""),
		AuditPageSize:       env.GetInt("AUDIT_PAGE_SIZE", 100),
		AuditMemoryCapacity: env.GetInt("AUDIT_MEMORY_CAPACITY", 0),

		// Integrity monitor
		IntegrityCheckInterval: env.GetDuration(
			"INTEGRITY_CHECK_INTERVAL_MINUTES",
			15,
			time.Minute,
		),
		IntegrityCheckRatePerSec: env.GetFloat64("INTEGRITY_CHECK_RATE_PER_SEC", 20.0),

		// Locking
		LockTimeout:  env.GetDuration("LOCK_TIMEOUT_SECONDS", 5, time.Second),
		LockRedisURL: env.GetString("LOCK_REDIS_URL", ""),
		LockLeaseTTL: env.GetDuration("LOCK_LEASE_TTL_SECONDS", 30, time.Second),
	}
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
