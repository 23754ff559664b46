// Package app provides the dependency injection container that assembles the ledger,
// access control and audit components for the CLI and the operational server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/medledger/internal/clock"
	"github.com/allisson/medledger/internal/config"
	"github.com/allisson/medledger/internal/database"
	"github.com/allisson/medledger/internal/http"
	"github.com/allisson/medledger/internal/locker"
	"github.com/allisson/medledger/internal/metrics"
)

// lazy holds a component built on first access. A failed build is remembered and
// returned on every later call.
type lazy[T any] struct {
	once  sync.Once
	value T
	err   error
	set   bool
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build()
		l.set = l.err == nil
	})
	return l.value, l.err
}

func (l *lazy[T]) initialized() (T, bool) {
	return l.value, l.set
}

// Container holds all application dependencies. Components are created on first access.
type Container struct {
	config *config.Config
	clock  clock.Clock

	logger     lazy[*slog.Logger]
	db         lazy[*sql.DB]
	txManager  lazy[database.TxManager]
	redis      lazy[*redis.Client]
	locker     lazy[locker.KeyedLocker]
	provider   lazy[*metrics.Provider]
	business   lazy[metrics.BusinessMetrics]
	httpServer lazy[*http.Server]

	ledgerComponents
	auditComponents
	accessComponents

	shutdownMu sync.Mutex
}

// NewContainer creates a container for cfg using the system clock.
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithClock(cfg, clock.New())
}

// NewContainerWithClock creates a container whose time-dependent components use clk.
func NewContainerWithClock(cfg *config.Config, clk clock.Clock) *Container {
	return &Container{config: cfg, clock: clk}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Clock returns the clock shared by every component.
func (c *Container) Clock() clock.Clock {
	return c.clock
}

// Logger returns the JSON logger configured from LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	logger, _ := c.logger.get(func() (*slog.Logger, error) {
		return c.initLogger(), nil
	})
	return logger
}

// IsMemory reports whether the in-process backend is configured.
func (c *Container) IsMemory() bool {
	return c.config.DBDriver == database.DriverMemory
}

// DB returns the database connection. The memory backend has none.
func (c *Container) DB() (*sql.DB, error) {
	return c.db.get(c.initDB)
}

// TxManager returns the transaction manager for the configured backend.
func (c *Container) TxManager() (database.TxManager, error) {
	return c.txManager.get(c.initTxManager)
}

// Locker returns the per-key writer lock shared by ledger, grant and emergency writes.
// It is Redis-backed when LOCK_REDIS_URL is set, in-process otherwise.
func (c *Container) Locker() (locker.KeyedLocker, error) {
	return c.locker.get(func() (locker.KeyedLocker, error) {
		if c.config.LockRedisURL == "" {
			return locker.New(c.config.LockTimeout), nil
		}
		client, err := c.RedisClient()
		if err != nil {
			return nil, err
		}
		return locker.NewRedis(client, c.config.LockTimeout, c.config.LockLeaseTTL), nil
	})
}

// RedisClient returns the client used by the distributed locker.
func (c *Container) RedisClient() (*redis.Client, error) {
	return c.redis.get(func() (*redis.Client, error) {
		if c.config.LockRedisURL == "" {
			return nil, errors.New("redis is not configured")
		}
		client, err := locker.NewRedisClient(context.Background(), c.config.LockRedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return client, nil
	})
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return c.provider.get(func() (*metrics.Provider, error) {
		if !c.config.MetricsEnabled {
			return nil, nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics provider: %w", err)
		}
		return provider, nil
	})
}

// BusinessMetrics returns the business metrics recorder, a no-op when metrics are
// disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return c.business.get(func() (metrics.BusinessMetrics, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return metrics.NewNoOpBusinessMetrics(), nil
		}
		return metrics.NewBusinessMetrics(provider.MeterProvider(), provider.Namespace())
	})
}

// HTTPServer returns the operational server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.initHTTPServer)
}

// Shutdown releases every initialized resource.
func (c *Container) Shutdown(ctx context.Context) error {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()

	var errs []error

	if server, ok := c.httpServer.initialized(); ok {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if provider, ok := c.provider.initialized(); ok && provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if client, ok := c.redis.initialized(); ok {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	if db, ok := c.db.initialized(); ok && db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) initDB() (*sql.DB, error) {
	if c.IsMemory() {
		return nil, fmt.Errorf("the %s driver has no database connection", database.DriverMemory)
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	if c.IsMemory() {
		return database.NewMemoryTxManager(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	var db *sql.DB
	if !c.IsMemory() {
		var err error
		if db, err = c.DB(); err != nil {
			return nil, fmt.Errorf("failed to get database for http server: %w", err)
		}
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, provider)
	return server, nil
}

// pick selects the constructor for the configured backend.
func pick[T any](
	c *Container,
	component string,
	memory func() T,
	postgres func(*sql.DB) T,
	mysql func(*sql.DB) T,
) (T, error) {
	var zero T

	switch c.config.DBDriver {
	case database.DriverMemory:
		return memory(), nil
	case database.DriverPostgres, database.DriverMySQL:
	default:
		return zero, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	db, err := c.DB()
	if err != nil {
		return zero, fmt.Errorf("failed to get database for %s: %w", component, err)
	}
	if c.config.DBDriver == database.DriverMySQL {
		return mysql(db), nil
	}
	return postgres(db), nil
}
